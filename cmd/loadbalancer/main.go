// Command loadbalancer splits the configured molecule list into one
// partition file per array task and optionally submits the array job.
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
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/slurm"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

var (
	flagCtrl   string
	flagSubmit bool
	flagWorker string
	flagSeed   int64
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loadbalancer [FLAGS]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&flagCtrl, "ctrl", "all.ctrl", "path to the run control file")
	flag.BoolVar(&flagSubmit, "submit", false, "submit the array job after writing partitions")
	flag.StringVar(&flagWorker, "worker", "./docktask", "worker binary the array tasks run")
	flag.Int64Var(&flagSeed, "seed", 0, "shuffle seed for the unbalanced mode, 0 means time-based")
	flag.Parse()
}

func main() {
	cfg, err := config.Load(flagCtrl)
	if err != nil {
		log.Fatalf("loadbalancer: %v", err)
	}

	est, err := chem.NewCostEstimator(1 << 16)
	if err != nil {
		log.Fatalf("loadbalancer: %v", err)
	}
	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	layout := workdir.NewLayout(cfg.DataDir)

	n, err := balance.Partition(cfg, layout, est, rand.New(rand.NewSource(seed)))
	if err != nil {
		log.Fatalf("loadbalancer: %v", err)
	}
	log.Printf("%d partition files written under %s", n, cfg.DataDir)

	if !flagSubmit {
		return
	}
	client, err := slurm.NewClient()
	if err != nil {
		log.Fatalf("loadbalancer: %v", err)
	}
	jobID, err := client.SubmitArray(context.Background(), slurm.ArraySpec{
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
		log.Fatalf("loadbalancer: %v", err)
	}
	fmt.Printf("submitted array job %s with %d tasks\n", jobID, n)
}
