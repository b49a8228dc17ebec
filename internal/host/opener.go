package host

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener hands a URL to something outside this process, usually the
// system browser.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// BrowserOpener opens URLs with the platform's default handler.
type BrowserOpener struct{}

// Open implements Opener. It returns once the handler has been started.
func (BrowserOpener) Open(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("host: open %s: %w", url, err)
	}
	go cmd.Wait()
	return nil
}
