// Package static holds the embedded kiosk page.
package static

import (
	"embed"
	"fmt"
)

//go:embed dist/index.html
var distFS embed.FS

// Index returns the kiosk page.
func Index() ([]byte, error) {
	page, err := distFS.ReadFile("dist/index.html")
	if err != nil {
		return nil, fmt.Errorf("could not read embedded page: %w", err)
	}
	return page, nil
}
