package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/typesystem"
)

// NewGUIDCmd defines the guid command group
func NewGUIDCmd() *cobra.Command {
	guidCmd := &cobra.Command{
		Use:   "guid",
		Short: "Parse and generate GUIDs",
	}
	guidCmd.AddCommand(newGUIDParseCmd())
	guidCmd.AddCommand(newGUIDGenCmd())
	return guidCmd
}

func newGUIDParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <guid>",
		Short: "Show a GUID in every supported form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := guid.Parse(args[0])
			if err != nil {
				return err
			}
			printGUID(cmd.OutOrStdout(), g)
			return nil
		},
	}
}

// GUIDGenCmd holds the guid gen flags
type GUIDGenCmd struct {
	Library    string
	IID        string
	CLSID      string
	TypeSystem string
	LIBID      bool
}

func newGUIDGenCmd() *cobra.Command {
	cmd := &GUIDGenCmd{}
	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random GUID or the ID the runtime derives for a name",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			g, err := cmd.Run()
			if err != nil {
				return err
			}
			printGUID(c.OutOrStdout(), g)
			return nil
		},
	}
	genCmd.Flags().StringVar(&cmd.Library, "lib", "", "Library name the ID is derived from")
	genCmd.Flags().StringVar(&cmd.IID, "iid", "", "Derive the IID of this interface")
	genCmd.Flags().StringVar(&cmd.CLSID, "clsid", "", "Derive the CLSID of this class")
	genCmd.Flags().BoolVar(&cmd.LIBID, "libid", false, "Derive the LIBID of the library")
	genCmd.Flags().StringVar(&cmd.TypeSystem, "ts", "automation", "Type system of the derived IID")
	return genCmd
}

// Run computes the requested GUID
func (cmd *GUIDGenCmd) Run() (guid.GUID, error) {
	derived := cmd.IID != "" || cmd.CLSID != "" || cmd.LIBID
	if !derived {
		return guid.NewRandom(), nil
	}
	if cmd.Library == "" {
		return guid.Zero, fmt.Errorf("--lib is required to derive an ID")
	}
	switch {
	case cmd.IID != "":
		ts, err := typesystem.Parse(cmd.TypeSystem)
		if err != nil {
			return guid.Zero, err
		}
		return guid.GenerateIID(cmd.Library, cmd.IID, ts.Key()), nil
	case cmd.CLSID != "":
		return guid.GenerateCLSID(cmd.Library, cmd.CLSID), nil
	default:
		return guid.GenerateLIBID(cmd.Library), nil
	}
}

func printGUID(w io.Writer, g guid.GUID) {
	fmt.Fprint(w, row("braced", g.Braced(true)))
	fmt.Fprint(w, row("text", g.Hyphenated(false)))
	fmt.Fprint(w, row("hex", g.Hex(false)))
	fmt.Fprint(w, row("c", g.Literal()))
	fmt.Fprint(w, row("go", g.GoString()))
}
