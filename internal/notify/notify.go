package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends system notifications.
type Notifier struct {
	Enabled bool
}

// Send sends a system notification.
// On macOS, uses osascript to display notifications.
// On other platforms, this is a no-op.
func (n *Notifier) Send(title, message string) error {
	if !n.Enabled {
		return nil
	}

	if runtime.GOOS != "darwin" {
		// Only macOS supported for now
		return nil
	}

	return sendMacOSNotification(title, message)
}

// sendMacOSNotification uses osascript to display a notification.
func sendMacOSNotification(title, message string) error {
	// Escape quotes in title and message
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// FormatAssembleComplete formats a paper assembly notification message.
func FormatAssembleComplete(paperName string, questionCount, totalMarks int, assembleErr error) (title, message string) {
	if assembleErr != nil {
		title = "⚠️ Paperforge Assembly Failed"
		message = fmt.Sprintf("%s: %v", paperName, assembleErr)
	} else {
		title = "✅ Paperforge Paper Ready"
		message = fmt.Sprintf("%s: %d questions, %d marks", paperName, questionCount, totalMarks)
	}
	return title, message
}
