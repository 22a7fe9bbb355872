package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/com-runtime/cmd/internal/linked"
	"github.com/wippyai/com-runtime/typelib"
)

// NewTypeLibCmd defines the typelib command group
func NewTypeLibCmd() *cobra.Command {
	var format string
	tlCmd := &cobra.Command{
		Use:   "typelib",
		Short: "Resolve, export and convert type libraries",
	}
	tlCmd.PersistentFlags().StringVarP(&format, "format", "f", "toml", "Output format: toml, json or msgpack")

	tlCmd.AddCommand(&cobra.Command{
		Use:   "resolve <manifest.toml>",
		Short: "Resolve a manifest into a type library with every ID filled in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := typelib.LoadManifest(args[0])
			if err != nil {
				return err
			}
			tl, err := m.Resolve()
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), tl, format)
		},
	})

	tlCmd.AddCommand(&cobra.Command{
		Use:       "export <library>",
		Short:     "Describe a library linked into this tool, class layouts included",
		Args:      cobra.ExactArgs(1),
		ValidArgs: linked.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := linked.Load(args[0])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), typelib.Export(lib), format)
		},
	})

	tlCmd.AddCommand(newConvertCmd(&format))
	return tlCmd
}

func newConvertCmd(format *string) *cobra.Command {
	var from string
	convertCmd := &cobra.Command{
		Use:   "convert <in> [out]",
		Short: "Re-encode a type library; formats follow the file extensions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputFormat(args[0], from)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			tl, err := typelib.Decode(f, in)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return encode(cmd.OutOrStdout(), tl, *format)
			}
			out := *format
			if !cmd.Flags().Changed("format") {
				if f, ok := typelib.FormatOf(args[1]); ok {
					out = string(f)
				}
			}
			w, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := encode(w, tl, out); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	convertCmd.Flags().StringVar(&from, "from", "", "Input format (default: from the file extension)")
	return convertCmd
}

func inputFormat(path, flag string) (typelib.Format, error) {
	if flag != "" {
		return typelib.ParseFormat(flag)
	}
	if f, ok := typelib.FormatOf(path); ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot tell the format of %s, use --from", path)
}

func encode(w io.Writer, tl *typelib.TypeLib, format string) error {
	f, err := typelib.ParseFormat(format)
	if err != nil {
		return err
	}
	return tl.Encode(w, f)
}
