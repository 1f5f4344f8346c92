package cbtcdb

import (
	"context"
	"log"

	mghelper "github.com/chainsafe/canton-cbtc/pkg/pgutil/migrations"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"

	"github.com/uptrace/bun"
)

const resultsRunItemIndex = "idx_cbtc_results_run_item"

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating cbtc_results table...")
		_, err := db.NewCreateTable().
			Model(&resultstore.ResultDao{}).
			IfNotExists().
			ForeignKey(`("run_id") REFERENCES "cbtc_runs" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateIndex().
			Model(&resultstore.ResultDao{}).
			Index(resultsRunItemIndex).
			Column("run_id", "item_index").
			Unique().
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &resultstore.ResultDao{}, "reference")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping cbtc_results table...")
		return mghelper.DropTables(ctx, db, &resultstore.ResultDao{})
	})
}
