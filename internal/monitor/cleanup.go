package monitor

import (
	"log"
	"os"
	"sync"
)

// deleteFiles removes paths with a small pool of workers. Intermediate
// artifacts can number in the hundreds of thousands on a big screen, and
// deletion is the consolidator's slowest step on network filesystems.
// Failures are logged and skipped; a leftover file only costs disk space.
func deleteFiles(paths []string, nWorkers int) {
	if len(paths) == 0 {
		return
	}
	if nWorkers <= 0 {
		nWorkers = 1
	}
	if nWorkers > len(paths) {
		nWorkers = len(paths)
	}

	work := make(chan string)
	var wg sync.WaitGroup
	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go func() {
			defer wg.Done()
			for p := range work {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					log.Printf("cleanup: cannot remove %s: %v", p, err)
				}
			}
		}()
	}
	for _, p := range paths {
		work <- p
	}
	close(work)
	wg.Wait()
}
