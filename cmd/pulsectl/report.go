package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"basegraph.app/pulse/internal/analytics"
	"basegraph.app/pulse/internal/service"
)

var guildFlag = &cli.StringFlag{
	Name:     "guild",
	Aliases:  []string{"g"},
	Usage:    "Guild `ID`",
	Required: true,
}

var channelFlag = &cli.StringFlag{
	Name:    "channel",
	Aliases: []string{"c"},
	Usage:   "Restrict the report to one channel `ID`",
}

func daysFlag(value int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "days",
		Usage: "Look-back window in days",
		Value: value,
	}
}

// asOfFlag pins "now" for windowed reports, which matters when inspecting a
// replayed transcript from the past.
var asOfFlag = &cli.TimestampFlag{
	Name:   "as-of",
	Usage:  "Report as of this RFC3339 time instead of now",
	Layout: time.RFC3339,
}

func flowsCommand() *cli.Command {
	return &cli.Command{
		Name:  "flows",
		Usage: "Print flow analytics for a guild or channel",
		Flags: []cli.Flag{dbFlag, guildFlag, channelFlag},
		Action: withAnalytics(func(c *cli.Context, svc service.AnalyticsService) (any, error) {
			return svc.FlowAnalytics(c.Context, c.String("guild"), c.String("channel"))
		}),
	}
}

func threadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "Print thread summary for a guild or channel",
		Flags: []cli.Flag{dbFlag, guildFlag, channelFlag},
		Action: withAnalytics(func(c *cli.Context, svc service.AnalyticsService) (any, error) {
			return svc.ThreadSummary(c.Context, c.String("guild"), c.String("channel"))
		}),
	}
}

func engagementCommand() *cli.Command {
	return &cli.Command{
		Name:  "engagement",
		Usage: "Print the guild engagement summary",
		Flags: []cli.Flag{dbFlag, guildFlag, daysFlag(service.DefaultEngagementDays), asOfFlag},
		Action: withAnalytics(func(c *cli.Context, svc service.AnalyticsService) (any, error) {
			return svc.EngagementSummary(c.Context, c.String("guild"), c.Int("days"))
		}),
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "Print the top users for a category",
		Flags: []cli.Flag{
			dbFlag,
			guildFlag,
			&cli.StringFlag{
				Name:  "category",
				Usage: "One of engagement, storytelling, starters, participation",
				Value: string(analytics.LeaderboardEngagement),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of entries",
				Value: 10,
			},
		},
		Action: withAnalytics(func(c *cli.Context, svc service.AnalyticsService) (any, error) {
			return svc.Leaderboard(c.Context, c.String("guild"), c.String("category"), c.Int("limit"))
		}),
	}
}

func insightsCommand() *cli.Command {
	return &cli.Command{
		Name:  "insights",
		Usage: "Print trend insights for a guild",
		Flags: []cli.Flag{dbFlag, guildFlag, daysFlag(service.DefaultInsightsDays), asOfFlag},
		Action: withAnalytics(func(c *cli.Context, svc service.AnalyticsService) (any, error) {
			return svc.Insights(c.Context, c.String("guild"), c.Int("days"))
		}),
	}
}

type reportFunc func(c *cli.Context, svc service.AnalyticsService) (any, error)

func withAnalytics(fn reportFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c)
		if err != nil {
			return err
		}
		defer e.Close()

		clock := time.Now
		if asOf := c.Timestamp("as-of"); asOf != nil {
			pinned := asOf.UTC()
			clock = func() time.Time { return pinned }
		}

		report, err := fn(c, service.NewAnalyticsService(e.stores, clock, e.logger))
		if err != nil {
			if errors.Is(err, service.ErrNoData) {
				return fmt.Errorf("guild %q has no recorded activity", c.String("guild"))
			}
			return err
		}
		return printJSON(c.App.Writer, report)
	}
}
