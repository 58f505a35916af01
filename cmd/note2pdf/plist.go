package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Schewwpid/note2PDF/container"
	"github.com/Schewwpid/note2PDF/plist"
)

var plistCmd = &cobra.Command{
	Use:   "plist <file.note>",
	Short: "Print the session descriptor as an XML property list",
	Long: `Plist extracts the session descriptor of a note archive and prints its
textual form. Archive references appear as "UID:<n>" strings, which is the
input the scene builder receives.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlist,
}

func runPlist(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := container.Extract(args[0], cfg.ExtractOptions()...)
	if err != nil {
		return err
	}
	graph, err := plist.Decode(sess.Data, cfg.DecodeOptions()...)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	sorted, _ := cmd.Flags().GetBool("sort-keys")
	out, err := plist.EncodeXML(graph, plist.WithSortKeys(sorted))
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "XML saved at %s\n", path)
	return nil
}

func init() {
	plistCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	plistCmd.Flags().Bool("sort-keys", true, "sort dictionary keys")

	rootCmd.AddCommand(plistCmd)
}
