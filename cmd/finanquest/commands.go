package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"finanquest/internal/amqp"
	"finanquest/internal/api"
	"finanquest/internal/config"
	"finanquest/internal/core"
	"finanquest/internal/events"
	applog "finanquest/internal/log"
	"finanquest/internal/sheets"
	gsheet "finanquest/internal/sheets/google"
	"finanquest/internal/sheets/memory"
	"finanquest/internal/summary"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"Sign in and remember the session", cmdLogin},
	"logout":       {"Forget the stored session", cmdLogout},
	"whoami":       {"Show the signed-in user", cmdWhoami},
	"summary":      {"Monthly income, expenses and top categories", cmdSummary},
	"ledger":       {"List the transactions of a month", cmdLedger},
	"goals":        {"List savings goals with progress", cmdGoals},
	"goal-create":  {"Create a savings goal", cmdGoalCreate},
	"goal-deposit": {"Add money to a goal", cmdGoalDeposit},
	"goal-delete":  {"Delete a goal", cmdGoalDelete},
	"tx-add":       {"Record a transaction", cmdTxAdd},
	"tx-edit":      {"Change a transaction", cmdTxEdit},
	"tx-delete":    {"Delete a transaction", cmdTxDelete},
	"profile-edit": {"Change name, email or password", cmdProfileEdit},
	"photo-upload": {"Upload a profile picture", cmdPhotoUpload},
	"challenges":   {"List weekly and monthly challenges", cmdChallenges},
	"achievements": {"List achievements", cmdAchievements},
	"report":       {"Print or export a monthly report", cmdReport},
	"events":       {"Follow session events from the broker", cmdEvents},
}

// newExporter opens the configured spreadsheet. Replaced in tests.
var newExporter = func(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.Exporter, error) {
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	}, logger)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func required(name string, ok bool) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: -%s is required", errUsage, name)
}

func (a *app) period(month string) (core.Period, error) {
	if month == "" {
		return core.PeriodOf(a.now()), nil
	}
	p, err := core.ParsePeriod(month)
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: -month: %w", errUsage, err)
	}
	return p, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func percent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.readLine("Email: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.readPassword("Password: "); err != nil {
			return err
		}
	}

	u, err := a.session.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s <%s>\n", u.Name, u.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("logout"), args); err != nil {
		return err
	}
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	fs := a.flags("whoami")
	refresh := fs.Bool("refresh", false, "reload level and XP from the server")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}
	if *refresh {
		fresh, err := a.client.GetUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if err := a.session.UpdateUser(ctx, fresh); err != nil {
			return err
		}
		u = fresh
	}

	lvl := summary.LevelProgress(u, summary.DefaultXPPerLevel)
	w := table(a.stdout)
	fmt.Fprintf(w, "Name\t%s\n", u.Name)
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Level\t%d (%d/%d XP, %s)\n", lvl.Level, lvl.XPIntoLevel, lvl.XPPerLevel, percent(lvl.Percent))
	fmt.Fprintf(w, "Experience\t%d XP\n", u.ExperiencePoints)
	if u.ProfilePicture != "" {
		fmt.Fprintf(w, "Picture\t%s\n", pictureLabel(u.ProfilePicture))
	}
	return w.Flush()
}

// pictureLabel avoids dumping inline image data to the terminal.
func pictureLabel(p string) string {
	if strings.HasPrefix(p, "data:") {
		mediaType, _, _ := strings.Cut(strings.TrimPrefix(p, "data:"), ";")
		return "inline " + mediaType
	}
	return p
}

func cmdSummary(ctx context.Context, a *app, args []string) error {
	fs := a.flags("summary")
	month := fs.String("month", "", "month as YYYY-MM (default: current)")
	top := fs.Int("top", summary.DefaultTopCategories, "number of categories to show")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := a.period(*month)
	if err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	txs, err := a.repo.Transactions(ctx)
	if err != nil {
		return err
	}

	s := summary.MonthlySummaryFor(txs, p.Year, p.Month, *top)
	fmt.Fprintln(a.stdout, p.Label())
	w := table(a.stdout)
	fmt.Fprintf(w, "Income\t%s\n", s.Income.BRL())
	fmt.Fprintf(w, "Expenses\t%s\n", s.Expense.BRL())
	fmt.Fprintf(w, "Month balance\t%s\n", s.MonthBalance.BRL())
	fmt.Fprintf(w, "Balance\t%s\n", s.Balance.BRL())
	if len(s.Categories) > 0 {
		fmt.Fprintln(w, "\t")
		fmt.Fprintln(w, "Top expenses\t")
		for _, c := range s.Categories {
			fmt.Fprintf(w, "  %s\t%s\n", c.Label, c.Total.BRL())
		}
	}
	return w.Flush()
}

func cmdLedger(ctx context.Context, a *app, args []string) error {
	fs := a.flags("ledger")
	month := fs.String("month", "", "month as YYYY-MM (default: current)")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := a.period(*month)
	if err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	txs, err := a.repo.Transactions(ctx)
	if err != nil {
		return err
	}

	list := summary.MonthTransactions(txs, p.Year, p.Month)
	if len(list) == 0 {
		fmt.Fprintf(a.stdout, "No transactions in %s\n", p.Label())
		return nil
	}
	w := table(a.stdout)
	fmt.Fprintln(w, "ID\tDate\tAmount\tDescription")
	for _, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Date, t.Signed().BRL(), t.Description)
	}
	return w.Flush()
}

func cmdGoals(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("goals"), args); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	goals, err := a.repo.Goals(ctx)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Fprintln(a.stdout, "No goals yet")
		return nil
	}

	w := table(a.stdout)
	fmt.Fprintln(w, "ID\tGoal\tSaved\tTarget\tProgress\tRemaining\tDeadline")
	for _, g := range goals {
		progress := "invalid target"
		if p, err := summary.GoalProgress(g); err == nil {
			progress = percent(p)
		} else {
			a.logger.DebugContext(ctx, "Goal progress unavailable", applog.FieldError, err)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Name, g.CurrentAmount.BRL(), g.TargetAmount.BRL(),
			progress, summary.GoalRemaining(g).BRL(), g.Deadline)
	}
	return w.Flush()
}

func cmdGoalCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("goal-create")
	name := fs.String("name", "", "goal name")
	target := fs.String("target", "", "target amount")
	deadline := fs.String("deadline", "", "deadline as YYYY-MM-DD")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(
		required("name", *name != ""),
		required("target", *target != ""),
		required("deadline", *deadline != ""),
	); err != nil {
		return err
	}
	amount, err := core.ParseMoney(*target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	d, err := core.ParseDate(*deadline)
	if err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	if err := a.repo.CreateGoal(ctx, api.GoalInput{Name: strings.TrimSpace(*name), TargetAmount: amount, Deadline: d}); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created goal %q\n", strings.TrimSpace(*name))
	return nil
}

func cmdGoalDeposit(ctx context.Context, a *app, args []string) error {
	fs := a.flags("goal-deposit")
	id := fs.Int64("id", 0, "goal id")
	amountFlag := fs.String("amount", "", "amount to add")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(required("id", *id > 0), required("amount", *amountFlag != "")); err != nil {
		return err
	}
	amount, err := core.ParseMoney(*amountFlag)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if _, err := a.user(); err != nil {
		return err
	}
	if err := a.repo.DepositGoal(ctx, *id, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deposited %s into goal %d\n", amount.BRL(), *id)
	return nil
}

func cmdGoalDelete(ctx context.Context, a *app, args []string) error {
	fs := a.flags("goal-delete")
	id := fs.Int64("id", 0, "goal id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id > 0); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	if err := a.repo.DeleteGoal(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted goal %d\n", *id)
	return nil
}

// txFlags are shared by tx-add and tx-edit. Empty values mean "not given".
type txFlags struct {
	desc, amount, kind, date *string
}

func newTxFlags(fs *flag.FlagSet) txFlags {
	return txFlags{
		desc:   fs.String("desc", "", "description, also used as the category"),
		amount: fs.String("amount", "", "amount, e.g. 12.50 or 12,50"),
		kind:   fs.String("type", "", "income or expense"),
		date:   fs.String("date", "", "date as YYYY-MM-DD"),
	}
}

// apply overlays the given flags on in.
func (f txFlags) apply(in *api.TransactionInput) error {
	if *f.desc != "" {
		in.Description = strings.TrimSpace(*f.desc)
	}
	if *f.amount != "" {
		m, err := core.ParseMoney(*f.amount)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		in.Amount = m
	}
	if *f.kind != "" {
		t, err := core.ParseTransactionType(*f.kind)
		if err != nil {
			return err
		}
		in.Type = t
	}
	if *f.date != "" {
		d, err := core.ParseDate(*f.date)
		if err != nil {
			return err
		}
		in.Date = d
	}
	return nil
}

func cmdTxAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("tx-add")
	tf := newTxFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(
		required("desc", *tf.desc != ""),
		required("amount", *tf.amount != ""),
		required("type", *tf.kind != ""),
	); err != nil {
		return err
	}
	in := api.TransactionInput{Date: core.DateOf(a.now())}
	if err := tf.apply(&in); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	if err := a.repo.CreateTransaction(ctx, in); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Recorded %s %s on %s\n", strings.ToLower(string(in.Type)), in.Amount.BRL(), in.Date)
	return nil
}

func cmdTxEdit(ctx context.Context, a *app, args []string) error {
	fs := a.flags("tx-edit")
	id := fs.Int64("id", 0, "transaction id")
	tf := newTxFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id > 0); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}

	txs, err := a.repo.Transactions(ctx)
	if err != nil {
		return err
	}
	var in *api.TransactionInput
	for _, t := range txs {
		if t.ID == *id {
			in = &api.TransactionInput{Description: t.Description, Amount: t.Amount, Type: t.Type, Date: t.Date}
			break
		}
	}
	if in == nil {
		return fmt.Errorf("transaction %d not found", *id)
	}
	if err := tf.apply(in); err != nil {
		return err
	}
	if err := a.repo.UpdateTransaction(ctx, *id, *in); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated transaction %d\n", *id)
	return nil
}

func cmdTxDelete(ctx context.Context, a *app, args []string) error {
	fs := a.flags("tx-delete")
	id := fs.Int64("id", 0, "transaction id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("id", *id > 0); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	if err := a.repo.DeleteTransaction(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted transaction %d\n", *id)
	return nil
}

func cmdProfileEdit(ctx context.Context, a *app, args []string) error {
	fs := a.flags("profile-edit")
	name := fs.String("name", "", "new name")
	email := fs.String("email", "", "new email")
	changePassword := fs.Bool("password", false, "prompt for a new password")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}

	var password string
	if *changePassword {
		if password, err = a.readPassword("New password: "); err != nil {
			return err
		}
		if password == "" {
			return errors.New("password cannot be empty")
		}
	}
	if *name == "" {
		*name = u.Name
	}
	if *email == "" {
		*email = u.Email
	}

	updated, err := a.client.UpdateUser(ctx, u, *name, *email, password)
	if err != nil {
		return err
	}
	if err := a.session.UpdateUser(ctx, updated); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Profile updated: %s <%s>\n", updated.Name, updated.Email)
	return nil
}

func cmdPhotoUpload(ctx context.Context, a *app, args []string) error {
	fs := a.flags("photo-upload")
	path := fs.String("file", "", "image file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("file", *path != ""); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(*path))
	var body io.Reader = f
	if contentType == "" {
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return err
		}
		head = head[:n]
		contentType = http.DetectContentType(head)
		body = io.MultiReader(strings.NewReader(string(head)), f)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%s is not an image (%s)", *path, contentType)
	}

	if err := a.client.UploadPhoto(ctx, u.ID, contentType, body); err != nil {
		return err
	}
	// The picture URL is assigned by the server.
	if fresh, err := a.client.GetUser(ctx, u.ID); err != nil {
		a.logger.WarnContext(ctx, "Could not refresh user after upload", applog.FieldError, err)
	} else if err := a.session.UpdateUser(ctx, fresh); err != nil {
		a.logger.WarnContext(ctx, "Could not store refreshed user", applog.FieldError, err)
	}
	fmt.Fprintln(a.stdout, "Profile picture uploaded")
	return nil
}

func cmdChallenges(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("challenges"), args); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	list, err := a.repo.Challenges(ctx)
	if err != nil {
		return err
	}
	weekly, monthly := summary.ChallengesByKind(list)

	w := table(a.stdout)
	section := func(title string, cs []core.Challenge) {
		fmt.Fprintf(w, "%s\t\t\t\n", title)
		if len(cs) == 0 {
			fmt.Fprintln(w, "  none\t\t\t")
			return
		}
		for _, c := range cs {
			action, _ := summary.ChallengeAction(c)
			fmt.Fprintf(w, "  %s\t%s\t+%d XP\t%s\n", c.ID, c.Name, c.RewardXP, actionLabel(action))
		}
	}
	section("Weekly", weekly)
	section("Monthly", monthly)
	return w.Flush()
}

func actionLabel(a summary.Action) string {
	switch a {
	case summary.ActionStart:
		return "available"
	case summary.ActionInProgress:
		return "in progress"
	default:
		return "completed"
	}
}

func cmdAchievements(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("achievements"), args); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}
	list, err := a.repo.Achievements(ctx)
	if err != nil {
		return err
	}
	unlocked, pct := summary.AchievementProgress(list)
	fmt.Fprintf(a.stdout, "%d of %d unlocked (%s)\n", unlocked, len(list), percent(pct))
	for _, ach := range list {
		mark := " "
		if ach.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(a.stdout, "[%s] %s - %s\n", mark, ach.Name, ach.Description)
	}
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("report")
	month := fs.String("month", "", "month as YYYY-MM (default: current)")
	top := fs.Int("top", summary.DefaultTopCategories, "number of categories to include")
	export := fs.Bool("export", false, "append the report to the configured spreadsheet")
	force := fs.Bool("force", false, "export even if the month was exported before")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := a.period(*month)
	if err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}
	txs, err := a.repo.Transactions(ctx)
	if err != nil {
		return err
	}
	s := summary.MonthlySummaryFor(txs, p.Year, p.Month, *top)

	if !*export {
		preview := memory.New()
		if _, err := preview.AppendReport(ctx, s); err != nil {
			return err
		}
		w := table(a.stdout)
		for _, row := range preview.Rows(p.Year) {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, cell)
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	}

	if !a.cfg.ExportEnabled() {
		return errors.New("report export is not configured, set GOOGLE_SPREADSHEET_ID")
	}
	dst, err := newExporter(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	ref, err := sheets.Export(ctx, dst, s, *force)
	if err != nil {
		if errors.Is(err, sheets.ErrAlreadyExported) {
			return fmt.Errorf("%s was already exported, use -force to append it again", p)
		}
		return err
	}
	a.logger.InfoContext(ctx, "Report exported",
		applog.NewFields().
			WithOperation(applog.OpExport).
			WithUser(u.ID).
			WithPeriod(p.Year, p.Month+1).
			ToSlice()...)
	fmt.Fprintf(a.stdout, "Exported %s to %s\n", p, ref)
	return nil
}

func cmdEvents(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("events"), args); err != nil {
		return err
	}
	if a.broker == nil {
		return errors.New("event broker is not configured, set AMQP_URL")
	}
	err := a.broker.ConsumeEvents(ctx, func(m *amqp.EventMessage) error {
		e := events.FromMessage(m)
		_, err := fmt.Fprintf(a.stdout, "%s\t%s\tuser=%d\n", e.At.Format("2006-01-02T15:04:05Z07:00"), e.Kind, e.UserID)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
