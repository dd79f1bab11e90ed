// Command fix-meeting-flags repairs leads whose meeting flags contradict
// their deals: any lead with a deal, or with a done meeting, gets both
// meeting_scheduled and meeting_done set. Without --yes it only lists them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"leadbridge/internal/events"
	"leadbridge/internal/leads"
	"leadbridge/internal/leads/lifecycle"
	"leadbridge/platform/config"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
)

func main() {
	apply := flag.Bool("yes", false, "apply the repair instead of listing the affected leads")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The repair needs no hierarchy lookups.
	svc := leads.NewLifecycle(pool, events.NewInMemoryBus(log), nil, nil, log)
	report, err := svc.RepairMeetingFlags(ctx, *apply)
	if err != nil {
		log.Error("meeting flag repair failed", "error", err)
		os.Exit(1)
	}

	printReport(report, *apply)
	if report.Failed > 0 {
		os.Exit(1)
	}
}

func printReport(report lifecycle.RepairReport, applied bool) {
	if len(report.Candidates) == 0 {
		fmt.Println("Všechny leady mají konzistentní příznaky schůzek.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEAD\tKLIENT\tOBCHODY\tNAPLÁNOVÁNO\tPROBĚHLO\tPROBĚHLO DNE")
	for _, c := range report.Candidates {
		doneAt := "-"
		if c.MeetingDoneAt != nil {
			doneAt = c.MeetingDoneAt.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", c.LeadID, c.ClientName, c.DealCount, yesNo(c.MeetingScheduled), yesNo(c.MeetingDone), doneAt)
	}
	_ = w.Flush()

	if !applied {
		fmt.Printf("\n%d leadů k opravě. Spusťte znovu s --yes pro uložení.\n", len(report.Candidates))
		return
	}
	fmt.Printf("\nOpraveno %d z %d leadů, %d selhalo.\n", report.Repaired, len(report.Candidates), report.Failed)
}

func yesNo(v bool) string {
	if v {
		return "ano"
	}
	return "ne"
}
