package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"

	"github.com/utafrali/storefront/internal/domain"
)

// dumper prints -dump output. Methods stay enabled so Money and Time print
// as their string forms.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// table prints rows under a tab separated header, or v in full with -dump.
func (c *cli) table(v any, header string, rows [][]string) error {
	if c.dump {
		dumper.Fdump(c.out, v)
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// say prints a one line result. With -dump it also dumps v when non-nil.
func (c *cli) say(v any, format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
	if c.dump && v != nil {
		dumper.Fdump(c.out, v)
	}
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func productRows(list []domain.Product) [][]string {
	out := make([][]string, 0, len(list))
	for i := range list {
		p := &list[i]
		discount := ""
		if pct, ok := p.DiscountPercentage(); ok {
			discount = strconv.Itoa(pct) + "%"
		}
		out = append(out, []string{
			id(p.ID), p.Name, p.CategoryName, p.Price.String(), discount,
			strconv.Itoa(p.Stock), yes(p.IsHotSale), yes(p.IsFavorited),
		})
	}
	return out
}

const productHeader = "ID\tNAME\tCATEGORY\tPRICE\tOFF\tSTOCK\tHOT\tFAVORITE"

func orderRows(list []domain.Order) [][]string {
	out := make([][]string, 0, len(list))
	for i := range list {
		o := &list[i]
		status := o.Status.Display()
		if o.Pending {
			status += " (pending confirmation)"
		}
		out = append(out, []string{
			id(o.ID), o.OrderNo, status, o.TotalAmount.String(),
			strconv.Itoa(len(o.Items)), o.CreatedAt.Format("2006-01-02 15:04"), o.TrackingNo,
		})
	}
	return out
}

const orderHeader = "ID\tORDER NO\tSTATUS\tTOTAL\tITEMS\tCREATED\tTRACKING"

func addressRows(list []domain.Address) [][]string {
	out := make([][]string, 0, len(list))
	for _, a := range list {
		out = append(out, []string{
			id(a.ID), a.RecipientName, a.Phone,
			strings.Join([]string{a.Province, a.City, a.District, a.Address}, " "),
			yes(a.IsDefault),
		})
	}
	return out
}

const addressHeader = "ID\tRECIPIENT\tPHONE\tADDRESS\tDEFAULT"
