package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"deedflow/internal/api"
	"deedflow/internal/client"
)

type globalFlags struct {
	server  string
	orgID   string
	role    string
	actor   string
	timeout time.Duration
}

func (g *globalFlags) client() *client.Client {
	return client.New(g.server, client.Identity{ActorID: g.actor, Name: g.actor, OrgID: g.orgID, Role: g.role}, g.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "dealctl",
		Short:         "Manage DeedFlow compliance deals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.server, "server", envOr("DEEDFLOW_SERVER", "http://localhost:8080"), "DeedFlow server URL")
	root.PersistentFlags().StringVar(&g.orgID, "org", envOr("DEEDFLOW_ORG", "demo-org"), "Organisation id")
	root.PersistentFlags().StringVar(&g.role, "role", envOr("DEEDFLOW_ROLE", "MANAGER"), "Caller role (OPERATOR, MANAGER, REVIEWER)")
	root.PersistentFlags().StringVar(&g.actor, "actor", envOr("DEEDFLOW_ACTOR", os.Getenv("USER")), "Caller name recorded in the audit log")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "Request timeout")

	root.AddCommand(
		newListCmd(g),
		newShowCmd(g),
		newCreateCmd(g),
		newEventCmd(g),
		newAdvanceCmd(g),
		newRecommendCmd(g),
		newAuditCmd(g),
	)
	return root
}

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deals of the organisation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deals, err := g.client().ListDeals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDealList(deals))
			return nil
		},
	}
}

func newShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show DEAL_ID",
		Short: "Show a deal with its steps and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			d, err := c.GetDeal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			gate, err := c.Gate(cmd.Context(), d.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDeal(d, gate))
			return nil
		},
	}
}

func newCreateCmd(g *globalFlags) *cobra.Command {
	var (
		req   api.CreateDealRequest
		price string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if price != "" {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid --price: %w", err)
				}
				req.SharePrice = p
			}
			d, err := g.client().CreateDeal(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("created "+d.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.City, "city", "", "Emirate (Dubai, Abu Dhabi, Sharjah, Ras Al Khaimah)")
	cmd.Flags().StringVar(&req.PropertyType, "type", "", "Property type")
	cmd.Flags().StringVar(&req.Address, "address", "", "Property address")
	cmd.Flags().StringVar(&req.TokenizationMode, "mode", "", "fractional or tokenized")
	cmd.Flags().Int64Var(&req.TotalShares, "shares", 0, "Total shares")
	cmd.Flags().StringVar(&price, "price", "", "Price per share")
	return cmd
}

func newEventCmd(g *globalFlags) *cobra.Command {
	var (
		reason string
		queue  bool
		drain  bool
	)
	cmd := &cobra.Command{
		Use:   "event DEAL_ID TYPE...",
		Short: "Apply simulated events (missing_doc, noc_delay, risk_surge, doc_verified, step_completed, approval_delay)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			dealID, types := args[0], args[1:]
			if queue || drain {
				events := make([]api.EventRequest, len(types))
				for i, t := range types {
					events[i] = api.EventRequest{Type: t, Reason: reason}
				}
				res, err := c.EnqueueEvents(cmd.Context(), dealID, api.EnqueueEventsRequest{Events: events, Drain: drain})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEnqueue(res, drain))
				return nil
			}
			var d api.Deal
			for _, t := range types {
				var err error
				if d, err = c.ApplyEvent(cmd.Context(), dealID, api.EventRequest{Type: t, Reason: reason}); err != nil {
					return fmt.Errorf("%s: %w", t, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMetrics(d))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Block reason for missing_doc and noc_delay")
	cmd.Flags().BoolVar(&queue, "queue", false, "Queue the events for the background workers")
	cmd.Flags().BoolVar(&drain, "drain", false, "Queue the events and process them before returning")
	return cmd
}

func newAdvanceCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "advance DEAL_ID STEP",
		Short: "Mark a step done; STEP is a step id or key such as kyc_aml",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			d, err := c.GetDeal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			stepID, ok := resolveStep(d, args[1])
			if !ok {
				return fmt.Errorf("deal %s has no step %q", d.ID, args[1])
			}
			step, err := c.AdvanceStep(cmd.Context(), d.ID, stepID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(step.Title+" is "+step.Status))
			return nil
		},
	}
}

func newRecommendCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend DEAL_ID",
		Short: "Show the copilot recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.client().Recommendation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRecommendation(rec))
			return nil
		},
	}
}

func newAuditCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit DEAL_ID",
		Short: "Show the audit log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			entries, err := g.client().AuditLog(ctx, args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAudit(entries))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	return cmd
}

// resolveStep matches a step by id or key.
func resolveStep(d api.Deal, ref string) (string, bool) {
	for _, s := range d.Steps {
		if s.ID == ref || s.Key == ref {
			return s.ID, true
		}
	}
	return "", false
}
