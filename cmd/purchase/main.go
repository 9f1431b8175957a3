// Command purchase submits one in-app purchase and prints its terminal outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inapppay/config"
	"inapppay/internal/core/domain"
	"inapppay/pkg/inapppay"
	"inapppay/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code. Every return
// path closes the client.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("purchase", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "config file (default ./config.yaml, env IAP_*)")
		item       = fs.String("item", "", "item id to buy")
		amount     = fs.String("amount", "", "price, e.g. 4.99")
		currency   = fs.String("currency", domain.DefaultCurrency, "ISO-4217 currency")
		method     = fs.String("method", "", "card or paypal (default: card when -card is set)")
		cardNumber = fs.String("card", "", "card number")
		expiry     = fs.String("expiry", "", "card expiry MM/YY")
		cvv        = fs.String("cvv", "", "card CVV")
		holder     = fs.String("name", "", "cardholder name")
		meta       = fs.String("meta", "", "comma separated key=value metadata")
		timeout    = fs.Duration("timeout", 0, "expire the purchase after this long (0 = no deadline)")
		recoverTx  = fs.Bool("recover", false, "resume purchases left open by an earlier run instead of submitting")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := inapppay.New(ctx, cfg, inapppay.WithLogger(log))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create purchase client")
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("client close")
		}
	}()

	var handles []*inapppay.Handle
	if *recoverTx {
		handles, err = client.Recover(ctx)
		if err != nil {
			log.Error().Err(err).Msg("recover failed")
		}
	} else {
		req, err := buildRequest(*item, *amount, *currency, *method, *cardNumber, *expiry, *cvv, *holder, *meta)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		var opts []inapppay.SubmitOption
		if *timeout > 0 {
			opts = append(opts, inapppay.WithTimeout(*timeout))
		}
		opts = append(opts, inapppay.WithProgress(func(n int) {
			log.Info().Int("attempt", n).Msg("attempt finished")
		}))

		h, err := client.Submit(ctx, req, opts...)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		handles = append(handles, h)
	}

	exit := 0
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	for _, h := range handles {
		out, err := h.Await(context.Background())
		if err != nil {
			log.Error().Err(err).Str("tx_id", h.ID().String()).Msg("await failed")
			exit = 1
			continue
		}
		_ = enc.Encode(struct {
			TransactionID string           `json:"transaction_id"`
			Outcome       inapppay.Outcome `json:"outcome"`
		}{h.ID().String(), out})

		if !out.IsSuccess() {
			exit = 1
		}
		if err := h.Acknowledge(context.Background()); err != nil {
			log.Warn().Err(err).Str("tx_id", h.ID().String()).Msg("acknowledge failed")
		}
	}
	return exit
}

func buildRequest(item, amount, currency, method, number, expiry, cvv, holder, meta string) (inapppay.PurchaseRequest, error) {
	price, err := decimal.NewFromString(amount)
	if err != nil {
		return inapppay.PurchaseRequest{}, fmt.Errorf("invalid -amount %q: %w", amount, err)
	}
	req := inapppay.PurchaseRequest{
		ItemID:        item,
		Amount:        price,
		Currency:      currency,
		PaymentMethod: inapppay.PaymentMethod(method),
	}
	if number != "" {
		req.Card = &inapppay.Card{Number: number, Expiry: expiry, CVV: cvv, Name: holder}
	}
	if meta != "" {
		req.Metadata = make(map[string]string)
		for _, pair := range strings.Split(meta, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return inapppay.PurchaseRequest{}, fmt.Errorf("invalid -meta entry %q", pair)
			}
			req.Metadata[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return req, nil
}
