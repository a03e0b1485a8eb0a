// Command docktask is the per-task worker executed on a compute node by
// each array task. It docks every molecule of its partition sequentially,
// appending a result row per molecule the moment its docking finishes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/dock"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/slurm"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

var (
	flagCtrl string
	flagTask int
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: docktask [FLAGS]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&flagCtrl, "ctrl", "all.ctrl", "path to the run control file")
	flag.IntVar(&flagTask, "task", 0, "array task index, 0 means read SLURM_ARRAY_TASK_ID")
	flag.Parse()
}

func main() {
	cfg, err := config.Load(flagCtrl)
	if err != nil {
		log.Fatalf("docktask: %v", err)
	}

	taskIdx := flagTask
	if taskIdx == 0 {
		tc, ok := slurm.FromEnv()
		if !ok {
			log.Fatalf("docktask: no -task flag and no SLURM_ARRAY_TASK_ID in environment")
		}
		taskIdx = tc.TaskIndex
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toolkit := chem.NewOpenBabel(cfg.ObabelTimeout)
	runner := &dock.TaskRunner{
		Cfg:    cfg,
		Layout: workdir.NewLayout(cfg.DataDir),
		Conv:   toolkit,
		Energy: toolkit,
		Docker: dock.NewQVina(cfg),
	}
	if err := runner.Run(ctx, taskIdx); err != nil {
		log.Fatalf("docktask: task %d: %v", taskIdx, err)
	}
}
