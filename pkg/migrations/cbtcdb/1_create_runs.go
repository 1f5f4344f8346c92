package cbtcdb

import (
	"context"
	"log"

	mghelper "github.com/chainsafe/canton-cbtc/pkg/pgutil/migrations"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating cbtc_runs table...")
		if err := mghelper.CreateSchema(ctx, db, &resultstore.RunDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &resultstore.RunDao{}, "started_at", "party")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping cbtc_runs table...")
		return mghelper.DropTables(ctx, db, &resultstore.RunDao{})
	})
}
