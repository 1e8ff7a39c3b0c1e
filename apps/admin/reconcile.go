package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) reconcile() error {
	report, err := cli.reconciler.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "checked: %d, fixed: %d, pending: %d, skipped: %d, failed: %d\n",
		report.Checked, report.Fixed, report.Pending, report.Skipped, report.Failed)
	return nil
}
