package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"advancedentitylimit/internal/protocol"
)

func tiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List tiers ordered by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/v1/tiers", nil)
		},
	}
}

func categoriesCmd() *cobra.Command {
	var (
		search string
		offset int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "categories <tier>",
		Short: "Page through a tier's categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if search != "" {
				q.Set("search", search)
			}
			q.Set("offset", strconv.Itoa(offset))
			q.Set("limit", strconv.Itoa(limit))
			return call("GET", "/v1/tiers/"+url.PathEscape(args[0])+"/categories?"+q.Encode(), nil)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "substring filter")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().IntVar(&limit, "limit", 27, "page size")
	return cmd
}

func createCmd() *cobra.Command {
	var copyFrom string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tier, optionally cloning an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", "/admin/v1/tiers", protocol.CreateTierRequest{Name: args[0], CopyFrom: copyFrom})
		},
	}
	cmd.Flags().StringVar(&copyFrom, "copy-from", "", "source tier to clone")
	return cmd
}

func setLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit <tier> <category> <limit>",
		Short: "Set a category limit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("limit: %w", err)
			}
			return call("POST", "/admin/v1/tiers/"+url.PathEscape(args[0])+"/limit",
				protocol.SetLimitRequest{Category: args[1], Limit: n})
		},
	}
}

func setEnabledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-enabled <tier> <category> <true|false>",
		Short: "Enable or exempt a category",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("enabled: %w", err)
			}
			return call("POST", "/admin/v1/tiers/"+url.PathEscape(args[0])+"/enabled",
				protocol.SetEnabledRequest{Category: args[1], Enabled: on})
		},
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <user> <category>",
		Short: "Run one placement evaluation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user: %w", err)
			}
			return call("POST", "/v1/evaluate", protocol.EvaluateRequest{UserID: user, Category: args[1]})
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the catalog and merge new categories into all tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", "/admin/v1/refresh", nil)
		},
	}
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the tier document now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", "/admin/v1/save", nil)
		},
	}
}

func grantCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "grant <user> <permission>",
		Short: "Grant or revoke a permission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user: %w", err)
			}
			return call("POST", "/admin/v1/grants", protocol.GrantRequest{UserID: user, Permission: args[1], Revoke: revoke})
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke instead of grant")
	return cmd
}
