// Command ledger-check opens the configured ledger store and audits the
// persisted state offline: gapless checkpoint and transfer sequences,
// terminal transfer completion stamps, certification validity windows, and
// product status consistency. It exits non-zero when any finding is reported.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ebuka-ez/TrackX/internal/core"
	"github.com/ebuka-ez/TrackX/pkg/domain"
)

var (
	exitFunc  = os.Exit
	openStore = func() (domain.PersistentStore, error) {
		return core.OpenPersistentStore(core.NewDefaultRulesEngine())
	}
)

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledger-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var driver string
	fs.StringVar(&driver, "driver", "", "storage driver override (memory|sqlite|postgres); defaults to TRACKX_STORAGE_DRIVER")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if driver != "" {
		if err := os.Setenv("TRACKX_STORAGE_DRIVER", driver); err != nil {
			fmt.Fprintf(stderr, "ledger-check: %v\n", err)
			return 1
		}
	}
	store, err := openStore()
	if err != nil {
		fmt.Fprintf(stderr, "ledger-check: open store: %v\n", err)
		return 1
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	findings := auditLedger(store)
	if len(findings) == 0 {
		fmt.Fprintf(stdout, "ledger check passed: %d products audited\n", len(store.ListProducts()))
		return 0
	}
	for _, f := range findings {
		fmt.Fprintf(stdout, "%s: %s\n", f.check, f.detail)
	}
	fmt.Fprintf(stderr, "ledger check failed: %d findings\n", len(findings))
	return 1
}

type finding struct {
	check  string
	detail string
}

// auditLedger re-verifies, over at-rest state, the invariants the rules
// engine enforces at commit time. A durable snapshot produced by an older
// build or edited out of band is exactly what this tool exists to catch.
func auditLedger(store domain.PersistentStore) []finding {
	var findings []finding
	report := func(check, format string, args ...any) {
		findings = append(findings, finding{check: check, detail: fmt.Sprintf(format, args...)})
	}

	for _, product := range store.ListProducts() {
		checkpoints := store.ListCheckpoints(product.ID)
		if len(checkpoints) == 0 {
			report("checkpoint-sequence", "product %d has no checkpoints", product.ID)
		}
		for i := range checkpoints {
			cp, ok := store.GetCheckpoint(product.ID, uint64(i))
			if !ok {
				report("checkpoint-sequence", "product %d missing checkpoint %d of %d", product.ID, i, len(checkpoints))
				continue
			}
			if cp.ProductID != product.ID {
				report("checkpoint-ownership", "checkpoint %d/%d carries product id %d", product.ID, i, cp.ProductID)
			}
		}

		transfers := store.ListTransfers(product.ID)
		for i := range transfers {
			tr, ok := store.GetTransfer(product.ID, uint64(i))
			if !ok {
				report("transfer-sequence", "product %d missing transfer %d of %d", product.ID, i, len(transfers))
				continue
			}
			if tr.Status.Terminal() && tr.CompletedAt == nil {
				report("transfer-completion", "product %d transfer %d is %s without completion stamp", product.ID, tr.ID, tr.Status)
			}
			if !tr.Status.Terminal() && tr.CompletedAt != nil {
				report("transfer-completion", "product %d transfer %d is %s with completion stamp %d", product.ID, tr.ID, tr.Status, *tr.CompletedAt)
			}
		}

		for _, cert := range store.ListCertifications(product.ID) {
			if cert.ExpiresAt <= cert.IssuedAt {
				report("certification-window", "product %d certification %q expires at %d, issued at %d", product.ID, cert.Type, cert.ExpiresAt, cert.IssuedAt)
			}
		}

		auditProductStatus(product, checkpoints, report)
	}
	return findings
}

func auditProductStatus(product domain.Product, checkpoints []domain.Checkpoint, report func(check, format string, args ...any)) {
	if len(checkpoints) == 0 {
		return
	}
	last := checkpoints[len(checkpoints)-1]
	if product.Status == domain.StatusRecalled {
		if last.Type != domain.CheckpointRecall {
			report("product-status", "product %d is recalled but last checkpoint is %q", product.ID, last.Type)
		}
		return
	}
	if derived := domain.DeriveStatus(last.Type); product.Status != derived {
		report("product-status", "product %d status %s does not match %s derived from checkpoint %q", product.ID, product.Status, derived, last.Type)
	}
}
