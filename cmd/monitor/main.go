// Command monitor drives the polling half of a screening run.
//
//	monitor check_progress <job_id>       classify tasks, resubmit crashes
//	monitor finish_and_resubmit <job_id>  consolidate results, stage leftovers
//
// Both modes are safe to re-run: task states are recomputed from the
// scheduler queue and the output files every time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/balance"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/monitor"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/slurm"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

var (
	flagCtrl       string
	flagWorker     string
	flagNoResubmit bool
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: monitor [FLAGS] check_progress|finish_and_resubmit JOB_ID\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&flagCtrl, "ctrl", "all.ctrl", "path to the run control file")
	flag.StringVar(&flagWorker, "worker", "./docktask", "worker binary resubmitted tasks run")
	flag.BoolVar(&flagNoResubmit, "no-resubmit", false, "stage the next round but do not submit it")
	flag.Parse()
}

func main() {
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	mode, jobID := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load(flagCtrl)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	client, err := slurm.NewClient()
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	layout := workdir.NewLayout(cfg.DataDir)
	ctx := context.Background()

	switch mode {
	case "check_progress":
		checkProgress(ctx, cfg, layout, client, jobID)
	case "finish_and_resubmit":
		finishAndResubmit(ctx, cfg, layout, client, jobID)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func checkProgress(ctx context.Context, cfg *config.RunConfig, layout workdir.Layout, client *slurm.Client, jobID string) {
	mon := &monitor.Monitor{Cfg: cfg, Layout: layout, Sched: client}
	records, err := mon.CheckProgress(ctx, jobID)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	for idx := 1; idx <= cfg.MaxNumJobs; idx++ {
		rec := records[idx]
		fmt.Printf("task %d: %s (%d/%d molecules)\n", idx, rec.State, rec.Observed, rec.Expected)
	}

	crashed := monitor.Crashed(records)
	switch {
	case monitor.AllDone(records):
		fmt.Println("all tasks completed; run finish_and_resubmit to consolidate")
	case len(crashed) == 0:
		fmt.Println("no crashed tasks; check again later")
	default:
		resub := &monitor.Resubmitter{Cfg: cfg, Layout: layout, Sched: client, WorkerBin: flagWorker}
		jobs, err := resub.ResubmitAll(ctx, crashed)
		if err != nil {
			log.Fatalf("monitor: resubmit: %v", err)
		}
		for idx, id := range jobs {
			fmt.Printf("task %d resubmitted as job %s\n", idx, id)
		}
	}
}

func finishAndResubmit(ctx context.Context, cfg *config.RunConfig, layout workdir.Layout, client *slurm.Client, jobID string) {
	active, err := client.ActiveTasks(ctx, jobID)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	if len(active) > 0 {
		log.Fatalf("monitor: %d tasks of job %s still queued or running; use check_progress", len(active), jobID)
	}

	cons := &monitor.Consolidator{Cfg: cfg, Layout: layout}
	unfinished, err := cons.Consolidate()
	if err != nil {
		log.Fatalf("monitor: consolidate: %v", err)
	}
	if len(unfinished) == 0 {
		fmt.Printf("screen complete; results in %s\n", layout.CombinedPath())
		return
	}

	if err := cons.PrepareNextRound(unfinished); err != nil {
		log.Fatalf("monitor: %v", err)
	}
	if flagNoResubmit {
		fmt.Printf("%d molecules staged for the next round; submission suppressed\n", len(unfinished))
		return
	}

	// re-read the rewritten control file and run a fresh round over it
	cfg, err = config.Load(flagCtrl)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	est, err := chem.NewCostEstimator(1 << 16)
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	n, err := balance.Partition(cfg, layout, est, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	newJob, err := client.SubmitArray(ctx, slurm.ArraySpec{
		JobName:   "dockscreen",
		TaskCount: n,
		WorkerBin: flagWorker,
		CtrlFile:  flagCtrl,
		Account:   cfg.SlurmAccount,
		Time:      cfg.SlurmTime,
		Mem:       cfg.SlurmMem,
		Modules:   cfg.SlurmModules,
	})
	if err != nil {
		log.Fatalf("monitor: %v", err)
	}
	fmt.Printf("next round submitted as job %s with %d tasks over %d molecules\n", newJob, n, len(unfinished))
}
