// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ux

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// DefaultTable creates a left aligned table with the given headers.
func DefaultTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewTable(w)
	table.Configure(func(config *tablewriter.Config) {
		config.Row.Alignment.Global = tw.AlignLeft
	})
	anyHeaders := make([]any, len(headers))
	for i, h := range headers {
		anyHeaders[i] = h
	}
	table.Header(anyHeaders...)
	return table
}
