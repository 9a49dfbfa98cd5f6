package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/totegamma/groupsync/client"
	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/realtime"
	"github.com/totegamma/groupsync/x/util"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups known to a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		limit, _ := cmd.Flags().GetInt("limit")

		c := client.NewClient(nodeURL)
		groups, err := c.ListGroups(cmd.Context(), core.GroupFilter{
			TextSearch: query,
			Tags:       tags,
			Limit:      limit,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(groups)
		}
		if len(groups) == 0 {
			fmt.Println("No groups found.")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s  %-24s  %s\n", g.ID, g.Name, time.Unix(g.CreatedAt, 0).Format(time.DateOnly))
			if g.About != "" {
				fmt.Printf("    %s\n", g.About)
			}
		}
		return nil
	},
}

var membersCmd = &cobra.Command{
	Use:   "members <group-id>",
	Short: "Show the reconciled membership of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(nodeURL)
		snapshot, err := c.GetMembers(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(snapshot)
		}
		fmt.Printf("%s (%d members)\n", snapshot.GroupID, snapshot.Size)
		for _, key := range snapshot.Members() {
			entry := snapshot.Entries[key]
			fmt.Printf("  %-7s  %s  since %s\n", entry.Role, key, time.Unix(entry.AddedAt, 0).Format(time.DateTime))
		}
		return nil
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print live updates until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")

		config, err := listenConfig(cmd, configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		live := realtime.NewClient(config)

		encoder := json.NewEncoder(os.Stdout)
		for _, topic := range topics {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			live.On(topic, func(ctx context.Context, msg core.ServerMessage) error {
				return encoder.Encode(msg)
			})
		}
		live.On(string(core.TopicConnection), func(ctx context.Context, msg core.ServerMessage) error {
			fmt.Fprintf(os.Stderr, "connection %s\n", msg.Status)
			return nil
		})

		err = live.Connect(ctx)
		if err != nil {
			return err
		}
		<-ctx.Done()
		live.Teardown()
		return nil
	},
}

// listenConfig reads the realtime section of the configuration file when it
// exists. Flags given on the command line win over the file.
func listenConfig(cmd *cobra.Command, path string) (realtime.Config, error) {
	config := realtime.Config{URL: socketURL(nodeURL)}

	var file util.Config
	err := file.Load(path)
	switch {
	case err == nil:
		fromFile, err := file.LiveClient()
		if err != nil {
			return realtime.Config{}, errors.Wrap(err, "invalid configuration")
		}
		urlGiven := cmd.Flags().Changed("url") || os.Getenv("GROUPSYNC_URL") != ""
		if fromFile.URL != "" && !urlGiven {
			config.URL = fromFile.URL
		}
		config.Backoff = fromFile.Backoff
		config.MaxBackoff = fromFile.MaxBackoff
	case cmd.Flags().Changed("config"):
		return realtime.Config{}, err
	}

	if cmd.Flags().Changed("backoff") {
		config.Backoff, _ = cmd.Flags().GetDuration("backoff")
	}
	if cmd.Flags().Changed("max-backoff") {
		config.MaxBackoff, _ = cmd.Flags().GetDuration("max-backoff")
	}

	return config, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := util.GetBuildInfo(version)
		if jsonOutput {
			return printJSON(info)
		}
		fmt.Printf("groupsync %s (%s, %s)\n", info.Version, info.GitHash, info.GoVersion)
		return nil
	},
}

func init() {
	groupsCmd.Flags().StringP("query", "q", "", "case-insensitive text to search in name and about")
	groupsCmd.Flags().StringSliceP("tag", "t", nil, "required tag (repeatable)")
	groupsCmd.Flags().Int("limit", 20, "maximum number of groups to return")

	addListenFlags(listenCmd)
}

func addListenFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("topic", []string{string(core.TopicAll)}, "topic to subscribe (repeatable)")
	cmd.Flags().Duration("backoff", realtime.DefaultBackoff, "wait between reconnect attempts")
	cmd.Flags().Duration("max-backoff", 0, "grow the wait exponentially up to this value")
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
