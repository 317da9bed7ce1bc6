package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Aleph-Alpha/mongosearch/v1/registry"
	"github.com/spf13/cobra"
)

const welcomeMessage = "Runs MongoDB indexers, retrievers and tools defined in a configuration file."

// Cmd holds the flag values shared by all subcommands.
type Cmd struct {
	configPath string
	envFiles   []string
	input      string
	asJSON     bool
}

// NewCmd builds the mongosearch root command.
func NewCmd(appVersion string) *cobra.Command {
	c := &Cmd{}

	rootCmd := &cobra.Command{
		Use:          "mongosearch",
		Short:        "MongoDB vector and full-text search CLI",
		Long:         welcomeMessage,
		Version:      appVersion,
		SilenceUsage: true,
	}

	// Disable sorting
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "mongosearch.yaml",
		"Path to the YAML configuration file.")
	rootCmd.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil,
		"Env files loaded before the configuration is parsed.\n"+
			"Variables already set in the environment win.")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered actions",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	listCmd.Flags().BoolVar(&c.asJSON, "json", false, "Print actions and their configuration as JSON.")

	runCmd := &cobra.Command{
		Use:   "run <indexer|retriever|tool> <name>",
		Short: "Run an action with a JSON input",
		Example: "  mongosearch run retriever mongodb/docs -i query.json\n" +
			"  echo '{\"dbName\":\"app\",\"collectionName\":\"docs\",\"id\":\"...\"}' | mongosearch run tool mongodb/crud/read",
		Args: cobra.ExactArgs(2),
		RunE: c.runAction,
	}
	runCmd.Flags().StringVarP(&c.input, "input", "i", "-", "JSON input file, - reads stdin.")

	rootCmd.AddCommand(listCmd, runCmd)
	return rootCmd
}

func (c *Cmd) runList(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(c.configPath, c.envFiles)
	if err != nil {
		return err
	}

	return withRegistry(cmd.Context(), cfg, func(reg *registry.Registry) error {
		actions := reg.List()
		if c.asJSON {
			return writeJSON(cmd.OutOrStdout(), actions)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tNAME\tDESCRIPTION")
		for _, a := range actions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.Key.Kind, a.Key.Name, a.Description)
		}
		return w.Flush()
	})
}

func (c *Cmd) runAction(cmd *cobra.Command, args []string) error {
	kind := registry.Kind(args[0])
	switch kind {
	case registry.KindIndexer, registry.KindRetriever, registry.KindTool:
	default:
		return fmt.Errorf("unknown kind %q, expected indexer, retriever or tool", args[0])
	}

	input, err := c.readInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(c.configPath, c.envFiles)
	if err != nil {
		return err
	}

	return withRegistry(cmd.Context(), cfg, func(reg *registry.Registry) error {
		out, err := reg.Run(cmd.Context(), registry.Key{Kind: kind, Name: args[1]}, input)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	})
}

func (c *Cmd) readInput(stdin io.Reader) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if c.input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(c.input)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && !json.Valid(data) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
