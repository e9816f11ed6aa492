// steerctl is the admin CLI for a running steerd: it reads client and node
// state off the management surface and reads/writes the live configuration,
// the way ap-factory's cobra command tree drives appliance installs.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"steerd/internal/basedef"
	"steerd/internal/mgmt"
)

var mgmtAddr string

func dial() (*mgmt.Client, error) {
	return mgmt.Dial(mgmtAddr)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func clientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List every known station and its per-node state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			clients, err := c.GetClients()
			if err != nil {
				return err
			}
			return printJSON(clients)
		},
	}
}

func clientInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client-info <mac>",
		Short: "Show per-event-type admission detail for one station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			detail, err := c.GetClientInfo(args[0])
			if err != nil {
				return err
			}
			return printJSON(detail)
		},
	}
}

func nodesCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List local (or, with --remote, peer) nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			var nodes interface{}
			if remote {
				nodes, err = c.RemoteInfo()
			} else {
				nodes, err = c.LocalInfo()
			}
			if err != nil {
				return err
			}
			return printJSON(nodes)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "list peer nodes instead of local ones")
	return cmd
}

func configCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Read or write the live configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			cfg, err := c.GetConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <field=value>...",
		Short: "Apply a delta to specific fields, leaving the rest untouched",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make(map[string]string, len(args))
			for _, a := range args {
				parts := strings.SplitN(a, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("steerctl: malformed field assignment %q, want field=value", a)
				}
				fields[parts[0]] = parts[1]
			}

			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			return c.UpdateConfig(fields)
		},
	}

	root.AddCommand(getCmd, updateCmd)
	return root
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "steerctl",
		Short: "Inspect and control a running steerd",
	}
	rootCmd.PersistentFlags().StringVarP(&mgmtAddr, "addr", "a",
		basedef.LocalZmqURL+":"+basedef.MgmtZmqRepPort, "steerd management endpoint")

	rootCmd.AddCommand(clientsCmd(), clientInfoCmd(), nodesCmd(), configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
