package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/micrictor/flowbase/internal/policy"
	"github.com/micrictor/flowbase/internal/prism"
	"github.com/micrictor/flowbase/internal/runner"
	"github.com/spf13/cobra"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List service or address groups as CSV",
	Long:  `Writes every service or address group with its uuid, for use when writing a base rule catalog.`,
	Args:  cobra.NoArgs,
	Run:   inventoryMain,
}

func init() {
	rootCmd.AddCommand(inventoryCmd)

	inventoryCmd.Flags().StringP("kind", "k", prism.KIND_SERVICE_GROUP, "service_group or address_group")
	inventoryCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
}

func inventoryMain(cmd *cobra.Command, args []string) {
	log.SetPrefix("[flowbase] ")

	kind, _ := cmd.Flags().GetString("kind")
	out, _ := cmd.Flags().GetString("out")
	if kind != prism.KIND_SERVICE_GROUP && kind != prism.KIND_ADDRESS_GROUP {
		log.Fatalf("Unsupported kind %s", kind)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	password, err := prismPassword(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := prism.NewClient(cfg.Prism, password)
	n, err := writeInventory(ctx, client, kind, cfg.Reconcile.PageSize, w)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d %ss", n, kind)
}

func writeInventory(ctx context.Context, l runner.Lister, kind string, pageSize int, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(prism.CSV_HEADER); err != nil {
		return 0, err
	}
	n := 0
	err := runner.Paginate(ctx, l, kind, pageSize, func(rec policy.Record) error {
		g, err := prism.DecodeGroup(kind, rec)
		if err != nil {
			return err
		}
		n++
		return cw.Write(g.Row())
	})
	if err != nil {
		return n, fmt.Errorf("inventory %s: %w", kind, err)
	}
	cw.Flush()
	return n, cw.Error()
}
