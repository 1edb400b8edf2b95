package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"xrent/internal/app/browse"
	"xrent/internal/app/policies"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
	"xrent/internal/infra/apiclient"
	"xrent/internal/infra/obs"
	"xrent/internal/infra/storage/memory"
	"xrent/internal/infra/storage/seed"
)

type options struct {
	api      string
	fixtures string
	query    string
	token    string
	sort     string
	quote    string
	rent     string
	wallet   string
	timeout  time.Duration
	env      string
}

func main() {
	var opts options
	flag.StringVar(&opts.api, "api", "", "base URL of an xrent server; fixtures are used when empty")
	flag.StringVar(&opts.fixtures, "fixtures", "data/listings.json", "listing fixtures file")
	flag.StringVar(&opts.query, "q", "", "search by token symbol or lender")
	flag.StringVar(&opts.token, "token", domainlistings.TokenFilterAll, "token filter")
	flag.StringVar(&opts.sort, "sort", string(domainlistings.SortRateLow), "rate-low, rate-high, amount-low or amount-high")
	flag.StringVar(&opts.quote, "quote", "", "price a listing, as id:days")
	flag.StringVar(&opts.rent, "rent", "", "rent a listing, as id:days")
	flag.StringVar(&opts.wallet, "wallet", os.Getenv("XRENT_WALLET"), "borrower wallet key")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "rental submission timeout")
	flag.StringVar(&opts.env, "env", "dev", "log format environment")
	flag.Parse()

	logger := obs.NewLoggerTo(os.Stderr, opts.env)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		logger.Error("browse failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, logger *slog.Logger) error {
	wallet := account.Key(strings.TrimSpace(opts.wallet))
	source, settlement, err := buildPorts(opts, wallet, logger)
	if err != nil {
		return err
	}

	session := browse.NewSession(browse.Config{
		Source:     source,
		Settlement: settlement,
		Borrower:   wallet,
		Timeout:    opts.timeout,
		Logger:     logger,
	})
	defer session.Close()

	// A failed load leaves the catalog empty; the session has already logged it.
	if err := session.Load(ctx); err != nil {
		logger.Debug("browsing without listings", "error", err)
	}
	session.SetQuery(opts.query)
	session.SetTokenFilter(opts.token)
	session.SetSort(domainlistings.SortKey(opts.sort))

	if opts.quote != "" {
		id, days, err := parseSelection(opts.quote)
		if err != nil {
			return err
		}
		return printQuote(out, session, id, days)
	}
	if opts.rent != "" {
		id, days, err := parseSelection(opts.rent)
		if err != nil {
			return err
		}
		if err := printQuote(out, session, id, days); err != nil {
			return err
		}
		return rent(ctx, out, session, id)
	}
	return printListings(out, session.Visible())
}

func buildPorts(opts options, wallet account.Key, logger *slog.Logger) (policies.ListingSource, policies.SettlementPort, error) {
	if opts.api != "" {
		client, err := apiclient.New(opts.api, wallet, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
	source := seed.FileSource{Path: opts.fixtures, Tokens: tokens.Default(), Logger: logger}
	return source, memory.SimulatedSettlement{Delay: memory.DefaultSettlementDelay}, nil
}

func parseSelection(raw string) (domainlistings.ListingID, int, error) {
	idPart, daysPart, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("selection %q must look like id:days", raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("listing id %q: %w", idPart, err)
	}
	days, err := strconv.Atoi(strings.TrimSpace(daysPart))
	if err != nil {
		return 0, 0, fmt.Errorf("duration %q: %w", daysPart, err)
	}
	return domainlistings.ListingID(id), days, nil
}

func printListings(out io.Writer, items []*domainlistings.Listing) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No tokens available")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOKEN\tAMOUNT\tRATE/DAY\tCOLLATERAL\tDURATION\tLENDER\tSTATUS")
	for _, l := range items {
		status := "available"
		if !l.IsAvailable {
			status = "rented"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%%\t%s%%\t%d-%d days\t%s\t%s\n",
			l.ID, l.TokenSymbol, l.Amount.String(), l.RentalRate.String(), l.CollateralRate.String(),
			l.MinDuration, l.MaxDuration, account.Key(l.Lender).Truncated(), status)
	}
	return tw.Flush()
}

func printQuote(out io.Writer, session *browse.Session, id domainlistings.ListingID, days int) error {
	if err := session.SelectDuration(id, days); err != nil {
		return err
	}
	costs, err := session.Quote(id)
	if err != nil {
		return err
	}
	view := costs.Display()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Listing\t%d\n", id)
	fmt.Fprintf(tw, "Duration\t%d days\n", costs.Duration)
	fmt.Fprintf(tw, "Rental fee\t%s\n", view.RentalFee)
	fmt.Fprintf(tw, "Collateral\t%s\n", view.Collateral)
	fmt.Fprintf(tw, "Platform fee\t%s\n", view.PlatformFee)
	fmt.Fprintf(tw, "Total\t%s\n", view.Total)
	return tw.Flush()
}

func rent(ctx context.Context, out io.Writer, session *browse.Session, id domainlistings.ListingID) error {
	results, err := session.Submit(ctx, id)
	if err != nil {
		return err
	}
	outcome, ok := <-results
	if !ok {
		return errors.New("session closed before the rental completed")
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	_, err = fmt.Fprintf(out, "Rental confirmed: %s\n", outcome.Confirmation.Reference)
	return err
}
