package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/wharfhq/wharf/internal/manifest"
)

// Represents the 'wharf crates' command.
type CratesCmd struct {
	Root string `arg:"" optional:"" default:"." help:"Workspace root directory."`
}

func (c *CratesCmd) Run() error {
	ws, err := manifest.Load(c.Root)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tBINARIES\tIMAGE")
	for _, name := range ws.Names() {
		crate, err := ws.Resolve(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t!\t%v\t\n", name, err)
			continue
		}

		image := "-"
		if crate.Image {
			image = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			crate.Name, crate.Version, strings.Join(crate.Binaries(), ","), image)
	}
	return w.Flush()
}
