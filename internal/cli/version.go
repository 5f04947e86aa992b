package cli

import (
	"fmt"

	"github.com/wharfhq/wharf/internal"
)

// Represents the 'wharf version' command.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(internal.VersionString())
	return nil
}
