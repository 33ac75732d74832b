// Package tui is the terminal swap form.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/internal/services/swap"
	"github.com/vadiminshakov/tokenswap/pkg/numfmt"
)

const (
	actionSwap   = "swap"
	actionFlip   = "flip"
	actionAmount = "amount"
	actionTokens = "tokens"
	actionQuit   = "quit"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	danger    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	boxStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1)
	successStyle = lipgloss.NewStyle().Foreground(special)
	errorStyle   = lipgloss.NewStyle().Foreground(danger)
	mutedStyle   = lipgloss.NewStyle().Foreground(subtle)
)

type balanceReader interface {
	Balance(symbol string) decimal.Decimal
}

// Widget drives one swap Session from the terminal.
type Widget struct {
	session *swap.Session
	wallet  balanceReader
	format  *numfmt.Formatter
	out     io.Writer
	logger  *zap.Logger
}

// New creates a terminal widget for session.
func New(session *swap.Session, wallet balanceReader, format *numfmt.Formatter, out io.Writer, logger *zap.Logger) *Widget {
	if format == nil {
		format = numfmt.New("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Widget{session: session, wallet: wallet, format: format, out: out, logger: logger}
}

// Run loops over swap forms until the user quits or ctx is done.
func (w *Widget) Run(ctx context.Context) error {
	for {
		err := w.runOnce(ctx)
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

var errQuit = errors.New("quit")

func (w *Widget) runOnce(ctx context.Context) error {
	if err := w.pickTokens(ctx); err != nil {
		return err
	}
	if err := w.enterAmount(ctx); err != nil {
		return err
	}

	for {
		view, err := w.session.View()
		if err != nil {
			w.header("SWAP")
			fmt.Fprintln(w.out, errorStyle.Render("prices unavailable, try again shortly"))
			return err
		}

		w.header("REVIEW")
		fmt.Fprintln(w.out, boxStyle.Render(Summary(view, w.format)))

		action, err := w.chooseAction(ctx, view)
		if err != nil {
			return err
		}

		switch action {
		case actionFlip:
			w.session.Flip()
		case actionAmount:
			if err := w.enterAmount(ctx); err != nil {
				return err
			}
		case actionTokens:
			return nil
		case actionQuit:
			return errQuit
		case actionSwap:
			return w.submit(ctx)
		}
	}
}

func (w *Widget) header(step string) {
	fmt.Fprint(w.out, "\033[H\033[2J")
	fmt.Fprintln(w.out, headerStyle.Render("TOKEN SWAP"))
	fmt.Fprintln(w.out, stepStyle.Render(step))
}

func (w *Widget) pickTokens(ctx context.Context) error {
	view, err := w.session.View()
	if err != nil {
		return err
	}

	from := view.Request.From
	w.header("STEP 1: SEND")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Token to send").
				Options(w.options(view.FromOptions)...).
				Value(&from),
		),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	w.session.SelectFrom(from)

	view, err = w.session.View()
	if err != nil {
		return err
	}
	to := view.Request.To
	w.header("STEP 2: RECEIVE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Token to receive").
				Options(w.options(view.ToOptions)...).
				Value(&to),
		),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	w.session.SelectTo(to)
	return nil
}

func (w *Widget) options(tokens []domain.Token) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(tokens))
	for _, t := range tokens {
		opts = append(opts, huh.NewOption(OptionLabel(t, w.wallet.Balance(t.Symbol), w.format), t.Symbol))
	}
	return opts
}

func (w *Widget) enterAmount(ctx context.Context) error {
	amount := w.session.Request().Amount
	w.header("STEP 3: AMOUNT")
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount to send").
				Description("Digits and one decimal point, or \"max\" for the whole balance").
				Value(&amount).
				Validate(w.applyAmount),
		),
	).RunWithContext(ctx)
}

// applyAmount pushes typed text into the session and reports the verdict.
func (w *Widget) applyAmount(text string) error {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "max") {
		if !w.session.SetMax() {
			return errors.New("nothing to send")
		}
	} else if !w.session.SetAmount(text) {
		return errors.New("use digits and one decimal point")
	}

	view, err := w.session.View()
	if err != nil {
		return errors.New("prices unavailable")
	}
	if view.Verdict.IsValid || view.Verdict.Warning != "" {
		// an over-balance amount can still be reviewed
		return nil
	}
	if msg := view.Verdict.Message(); msg != "" {
		return errors.New(msg)
	}
	return errors.New("enter an amount")
}

func (w *Widget) chooseAction(ctx context.Context, view swap.View) (string, error) {
	action := actionSwap
	opts := []huh.Option[string]{}
	if view.CanSubmit {
		opts = append(opts, huh.NewOption("Swap", actionSwap))
	} else {
		action = actionAmount
	}
	opts = append(opts,
		huh.NewOption("Flip direction", actionFlip),
		huh.NewOption("Change amount", actionAmount),
		huh.NewOption("Change tokens", actionTokens),
		huh.NewOption("Quit", actionQuit),
	)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What next?").
				Options(opts...).
				Value(&action),
		),
	).RunWithContext(ctx)
	return action, err
}

func (w *Widget) submit(ctx context.Context) error {
	fmt.Fprintln(w.out, mutedStyle.Render("settling..."))
	settlement, err := w.session.Submit(ctx)
	if err != nil {
		w.logger.Debug("tui swap not settled", zap.String("status", string(settlement.Status)), zap.Error(err))
	}
	fmt.Fprintln(w.out, ResultLine(settlement, err))

	again := true
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Another swap?").
				Affirmative("Yes").
				Negative("Quit").
				Value(&again),
		),
	).RunWithContext(ctx); err != nil {
		return err
	}
	if !again {
		return errQuit
	}
	return nil
}

// OptionLabel is the picker line for a token.
func OptionLabel(t domain.Token, balance decimal.Decimal, f *numfmt.Formatter) string {
	if balance.IsPositive() {
		return fmt.Sprintf("%-6s %s  (balance %s)", t.Symbol, f.USD(t.Price), f.Amount(balance))
	}
	return fmt.Sprintf("%-6s %s", t.Symbol, f.USD(t.Price))
}

// Summary renders the review box content for a form state.
func Summary(v swap.View, f *numfmt.Formatter) string {
	var b strings.Builder
	from, to := v.Request.From, v.Request.To

	fmt.Fprintf(&b, "Send:     %s %s", f.Amount(amountOrZero(v.Request.Amount)), from)
	if v.FromUSD != nil {
		fmt.Fprintf(&b, "  %s", f.USD(*v.FromUSD))
	}
	fmt.Fprintf(&b, "\nBalance:  %s %s", f.Amount(v.Balance), from)
	if v.Quote != nil {
		fmt.Fprintf(&b, "\nReceive:  %s %s", f.Amount(v.Quote.Output), to)
		if v.ToUSD != nil {
			fmt.Fprintf(&b, "  %s", f.USD(*v.ToUSD))
		}
		fmt.Fprintf(&b, "\nRate:     1 %s = %s %s", from, f.Amount(v.Quote.Rate), to)
	}
	if msg := v.Verdict.Message(); msg != "" {
		b.WriteString("\n\n")
		if v.Verdict.Error != "" {
			b.WriteString(errorStyle.Render(msg))
		} else {
			b.WriteString(msg)
		}
	}
	return b.String()
}

// ResultLine renders the outcome of a submission.
func ResultLine(s domain.Settlement, err error) string {
	switch s.Status {
	case domain.SettlementSettled:
		return successStyle.Render("✓ " + s.Message)
	case domain.SettlementFailed:
		return errorStyle.Render("✗ " + s.Message)
	case domain.SettlementRejected:
		if msg := s.Verdict.Message(); msg != "" {
			return errorStyle.Render("✗ " + msg)
		}
	}
	if err != nil {
		return errorStyle.Render("✗ " + err.Error())
	}
	return mutedStyle.Render(string(s.Status))
}

func amountOrZero(text string) decimal.Decimal {
	d, ok := swap.ParseAmount(text)
	if !ok {
		return decimal.Zero
	}
	return d
}
