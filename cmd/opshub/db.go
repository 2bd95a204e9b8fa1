/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.store.Close()
		color.New(color.FgGreen).Printf("Schema up to date (%s)\n", a.store.Driver())
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.store.Close()
		seeded, err := a.store.Seed(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		if !seeded {
			fmt.Println(color.New(color.FgHiBlack).Sprint("Database already has teams; nothing seeded."))
			return nil
		}
		color.New(color.FgGreen).Println("Seeded demo data.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}
