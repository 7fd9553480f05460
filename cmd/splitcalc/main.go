// Command splitcalc splits a receipt described by a calculate request JSON
// document and prints each person's share.
//
//	splitcalc [-json] [-check] [-currency EUR] [-color] [request.json]
//	splitcalc -receipt [-json] [receipt.json]
//
// With -receipt the input is a bare receipt document, as produced by the
// extraction pipeline, and only its reconciliation report is printed.
// Input is read from stdin when no file is given.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/format"
	"github.com/mmynk/receiptsplit/internal/money"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

func main() {
	logging.Setup()
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "splitcalc: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("splitcalc", flag.ContinueOnError)
	var (
		asJSON    = fs.Bool("json", false, "print the full response as JSON")
		checkOnly = fs.Bool("check", false, "only print the receipt reconciliation report")
		currency  = fs.String("currency", "", "ISO 4217 currency for the summary (overrides the request)")
		bare      = fs.Bool("receipt", false, "input is a bare receipt document; print its reconciliation report")
		color     = fs.Bool("color", logging.IsTerminal(stdout), "color the summary")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := readInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	if *bare {
		return checkDocument(stdout, data, *asJSON)
	}
	if err := receipt.ValidateCalculateRequest(data); err != nil {
		return err
	}

	var req api.CalculateRequest
	if err := (apiconnect.Codec{}).Unmarshal(data, &req); err != nil {
		return err
	}
	if err := api.Validate(&req); err != nil {
		return err
	}
	if *currency != "" {
		req.Currency = *currency
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if err := money.CheckCurrency(req.Currency); err != nil {
		return err
	}

	r := api.ToReceipt(req.Receipt)
	report := receipt.Check(r)
	if *checkOnly {
		return printReport(stdout, report, *asJSON)
	}

	participants := api.ToParticipants(req.Participants)
	assignments, err := api.ToAssignments(req.Assignments, len(r.Items))
	if err != nil {
		return err
	}
	splits, err := calculator.Allocate(r, participants, assignments)
	if err != nil {
		var mismatch *calculator.ShareMismatchError
		if errors.As(err, &mismatch) {
			slog.Debug("Share mismatch", "item", mismatch.Item, "discrepancy", mismatch.Discrepancy())
		}
		return err
	}

	if *asJSON {
		return writeJSON(stdout, api.CalculateResponse{
			Splits:       api.FromSplits(splits),
			ChargeTotals: api.FromChargeTotals(calculator.SumCharges(r.Charges)),
			GrandTotal:   r.GrandTotal,
			Report:       api.FromReport(report),
		})
	}
	if !report.Reconciled() {
		for _, p := range report.Problems {
			fmt.Fprintf(stdout, "warning: %s\n", p)
		}
		fmt.Fprintln(stdout)
	}
	_, err = io.WriteString(stdout, format.Summary(splits, format.Options{Currency: req.Currency, Styled: *color}))
	return err
}

// checkDocument validates a bare receipt document and prints its report.
func checkDocument(w io.Writer, data []byte, asJSON bool) error {
	if err := receipt.ValidateDocument(data); err != nil {
		return err
	}
	var doc api.Receipt
	if err := (apiconnect.Codec{}).Unmarshal(data, &doc); err != nil {
		return err
	}
	if err := api.Validate(&doc); err != nil {
		return err
	}
	return printReport(w, receipt.Check(api.ToReceipt(doc)), asJSON)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}

func printReport(w io.Writer, rep receipt.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, api.FromReport(rep))
	}
	fmt.Fprintf(w, "scenario:      %s\n", rep.Scenario)
	fmt.Fprintf(w, "items total:   %s\n", rep.ItemsTotal)
	fmt.Fprintf(w, "charges total: %s\n", rep.ChargesTotal)
	fmt.Fprintf(w, "grand total:   %s\n", rep.GrandTotal)
	fmt.Fprintf(w, "drift:         %s\n", rep.Drift)
	for _, rate := range rep.Rates {
		fmt.Fprintf(w, "  %s: %s (%s%%)\n", rate.Name, rate.Amount, rate.Percent.StringFixed(2))
	}
	for _, d := range rep.ItemDiscrepancies {
		fmt.Fprintf(w, "  item %d (%s): %s computed, %s printed\n", d.Index, d.Name, d.Computed, d.LineTotal)
	}
	for _, p := range rep.Problems {
		fmt.Fprintf(w, "problem: %s\n", p)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
