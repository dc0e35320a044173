package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/rize/internal/auth"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/navigation"
)

// Session is the part of [auth.Manager] the TUI drives.
type Session interface {
	State() models.State
	CurrentRouteHint() models.State
	SignIn(ctx context.Context, email, password string) (auth.Result, error)
	SignUp(ctx context.Context, email, password string) (auth.Result, error)
	EnsureVerified(ctx context.Context) (auth.Result, error)
	CompleteFederatedSignIn(ctx context.Context, fr auth.FederatedResult) (auth.Result, error)
	RequestPasswordReset(ctx context.Context, email string) (auth.Result, error)
	Reconcile(ctx context.Context) (auth.Result, error)
	Profile(ctx context.Context) (*models.Identity, error)
	SignOut(ctx context.Context) (auth.Result, error)
}

// Lists is the part of [repositories.ListStore] the TUI reads and writes.
type Lists interface {
	Append(ctx context.Context, kind models.CollectionKind, text string) (*models.ListRecord, error)
	Records(ctx context.Context, kind models.CollectionKind) ([]*models.ListRecord, error)
}

// FederatedFlow runs a third-party sign-in and reports its outcome.
type FederatedFlow func(ctx context.Context) auth.FederatedResult

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	session  Session
	lists    Lists
	google   FederatedFlow
	screen   navigation.Destination
	width    int
	height   int
	form     []textinput.Model
	focus    int
	composer textinput.Model
	records  list.Model
	kind     models.CollectionKind
	identity *models.Identity
	status   string
	err      string
	busy     bool
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// google may be nil when federated sign-in is not configured.
func NewModel(ctx context.Context, session Session, lists Lists, google FederatedFlow) *Model {
	composer := textinput.New()
	composer.Placeholder = "Type and press enter"
	composer.CharLimit = 500

	return &Model{
		ctx:      ctx,
		session:  session,
		lists:    lists,
		google:   google,
		screen:   navigation.Splash,
		composer: composer,
		records:  newRecordList(),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Screen returns the destination currently shown.
func (m *Model) Screen() navigation.Destination { return m.screen }

// Init picks the cold-start screen from the cached session flag.
//
// A cached sign-in is reconciled with the provider before any protected screen is shown.
func (m *Model) Init() tea.Cmd {
	initial := navigation.Initial(m.session.CurrentRouteHint())
	if initial.RequiresAuth() {
		cmd := m.authCmd(m.session.Reconcile)
		m.status = "Checking your session..."
		return cmd
	}
	return m.navigate(initial)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.records.SetSize(max(msg.Width-4, 0), max(msg.Height-10, 0))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.kill) {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKeys(msg)

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, nil
}

// View renders the UI based on the current screen.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case navigation.Splash:
		body = styles.title.Render("Rize")
	case navigation.Guest:
		body = m.renderGuest()
	case navigation.SignIn:
		body = m.renderForm("Sign in", m.keys.submit, m.keys.forgot, m.keys.toSignUp, m.keys.formGoogle, m.keys.verify, m.keys.back)
	case navigation.SignUp:
		body = m.renderForm("Create account", m.keys.submit, m.keys.next, m.keys.back)
	case navigation.ForgotPassword:
		body = m.renderForm("Reset password", m.keys.submit, m.keys.back)
	case navigation.Home:
		body = m.renderHome()
	case navigation.Notes, navigation.Tasks:
		body = m.renderList()
	case navigation.Profile:
		body = m.renderProfile()
	}

	var footer []string
	if m.busy {
		footer = append(footer, styles.help.Render("Working..."))
	}
	if m.status != "" {
		footer = append(footer, styles.ok.Render(m.status))
	}
	if m.err != "" {
		footer = append(footer, styles.err.Render(m.err))
	}

	if len(footer) == 0 {
		return styles.screen.Render(body)
	}
	return styles.screen.Render(body + "\n\n" + strings.Join(footer, "\n"))
}

// navigate asks the navigation policy where requested should land and enters that screen.
func (m *Model) navigate(requested navigation.Destination) tea.Cmd {
	decision := navigation.Decide(m.session.State(), m.screen, requested)
	if !decision.Navigate {
		return nil
	}

	m.err = ""
	m.status = ""
	m.screen = decision.Target
	return m.enter()
}

// guard re-applies the policy to the current screen after the session state changed.
func (m *Model) guard() tea.Cmd {
	if m.screen == navigation.Splash {
		if m.session.State() == models.Authenticated {
			return m.navigate(navigation.Home)
		}
		return m.navigate(navigation.SignIn)
	}
	return m.navigate(m.screen)
}

func (m *Model) enter() tea.Cmd {
	switch m.screen {
	case navigation.SignIn:
		m.setForm(emailInput(m.formEmail()), passwordInput())
	case navigation.SignUp:
		m.setForm(emailInput(m.formEmail()), passwordInput())
	case navigation.ForgotPassword:
		m.setForm(emailInput(m.formEmail()))
	case navigation.Notes:
		return m.openList(models.Note)
	case navigation.Tasks:
		return m.openList(models.Task)
	case navigation.Profile:
		m.identity = nil
		return m.loadProfile()
	}
	return nil
}

func (m *Model) openList(kind models.CollectionKind) tea.Cmd {
	m.kind = kind
	m.composer.SetValue("")
	m.composer.Focus()
	m.records.SetItems(nil)
	m.records.Title = "Notes"
	if kind == models.Task {
		m.records.Title = "Tasks"
	}
	return m.loadRecords(kind)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case navigation.Guest:
		return m.handleGuestKeys(msg)
	case navigation.SignIn, navigation.SignUp, navigation.ForgotPassword:
		return m.handleFormKeys(msg)
	case navigation.Home:
		return m.handleHomeKeys(msg)
	case navigation.Notes, navigation.Tasks:
		return m.handleListKeys(msg)
	case navigation.Profile:
		return m.handleProfileKeys(msg)
	}
	return m, nil
}

func (m *Model) handleGuestKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.signIn):
		return m, m.navigate(navigation.SignIn)
	case key.Matches(msg, m.keys.signUp):
		return m, m.navigate(navigation.SignUp)
	case key.Matches(msg, m.keys.google):
		return m, m.federatedSignIn()
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		return m, m.submit()
	case key.Matches(msg, m.keys.next):
		m.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.moveFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.screen == navigation.ForgotPassword {
			return m, m.navigate(navigation.SignIn)
		}
		return m, m.navigate(navigation.Guest)
	}

	if m.screen == navigation.SignIn {
		switch {
		case key.Matches(msg, m.keys.toSignUp):
			return m, m.navigate(navigation.SignUp)
		case key.Matches(msg, m.keys.forgot):
			return m, m.navigate(navigation.ForgotPassword)
		case key.Matches(msg, m.keys.formGoogle):
			return m, m.federatedSignIn()
		case key.Matches(msg, m.keys.verify):
			return m, m.authCmd(m.session.EnsureVerified)
		}
	}

	if len(m.form) == 0 {
		return m, nil
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.notes):
		return m, m.navigate(navigation.Notes)
	case key.Matches(msg, m.keys.tasks):
		return m, m.navigate(navigation.Tasks)
	case key.Matches(msg, m.keys.profile):
		return m, m.navigate(navigation.Profile)
	case key.Matches(msg, m.keys.signOut):
		return m, m.authCmd(m.session.SignOut)
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.navigate(navigation.Home)
	case key.Matches(msg, m.keys.submit):
		return m, m.appendRecord(m.composer.Value())
	case key.Matches(msg, m.keys.up, m.keys.down):
		m.records, cmd = m.records.Update(msg)
		return m, cmd
	}

	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) handleProfileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.navigate(navigation.Home)
	case key.Matches(msg, m.keys.signOut):
		return m, m.authCmd(m.session.SignOut)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	m.busy = false

	switch msg.kind {
	case MsgAuthResult:
		p := msg.data.(authPayload)
		return m.handleAuth(p.result, p.err)

	case MsgRecordsLoaded:
		p := msg.data.(recordsPayload)
		if p.kind != m.kind {
			return nil
		}
		if p.err != nil {
			m.err = auth.UserMessage(p.err)
			return nil
		}
		return m.records.SetItems(recordItems(p.records))

	case MsgRecordAppended:
		p := msg.data.(appendPayload)
		if p.err != nil {
			m.err = auth.UserMessage(p.err)
			return nil
		}
		m.err = ""
		m.composer.SetValue("")
		return m.loadRecords(p.kind)

	case MsgProfileLoaded:
		p := msg.data.(profilePayload)
		if p.err != nil {
			cmd := m.guard()
			m.err = auth.UserMessage(p.err)
			return cmd
		}
		m.identity = p.identity
	}

	return nil
}

// handleAuth routes the user on a manager signal.
func (m *Model) handleAuth(result auth.Result, err error) tea.Cmd {
	var cmd tea.Cmd

	switch result.Signal {
	case auth.ReadyForHome:
		cmd = m.navigate(navigation.Home)
		if result.Identity != nil {
			m.status = "Signed in as " + result.Identity.Email
		}
	case auth.AwaitingVerification:
		cmd = m.navigate(navigation.SignIn)
		m.status = verificationStatus(result)
	case auth.RegisteredPendingVerification:
		cmd = m.navigate(navigation.SignIn)
		m.status = "Account created. " + verificationStatus(result)
	case auth.SignedOut:
		if err != nil {
			cmd = m.navigate(navigation.SignIn)
			break
		}
		cmd = m.navigate(navigation.Guest)
		m.status = "Signed out."
	case auth.PasswordResetSent:
		cmd = m.navigate(navigation.SignIn)
		m.status = "Password reset email sent."
	default:
		cmd = m.guard()
	}

	if err != nil {
		m.err = auth.UserMessage(err)
	}
	return cmd
}

func verificationStatus(result auth.Result) string {
	email := "your inbox"
	if result.Identity != nil {
		email = result.Identity.Email
	}
	if result.VerificationSent {
		return fmt.Sprintf("Verification email sent to %s. Verify, then press ctrl+r.", email)
	}
	return fmt.Sprintf("Verify %s, then press ctrl+r.", email)
}

func (m *Model) submit() tea.Cmd {
	email := m.formValue(0)

	switch m.screen {
	case navigation.SignIn:
		password := m.formValue(1)
		return m.authCmd(func(ctx context.Context) (auth.Result, error) {
			return m.session.SignIn(ctx, email, password)
		})
	case navigation.SignUp:
		password := m.formValue(1)
		return m.authCmd(func(ctx context.Context) (auth.Result, error) {
			return m.session.SignUp(ctx, email, password)
		})
	case navigation.ForgotPassword:
		return m.authCmd(func(ctx context.Context) (auth.Result, error) {
			return m.session.RequestPasswordReset(ctx, email)
		})
	}
	return nil
}

// authCmd runs a manager operation off the render loop.
func (m *Model) authCmd(op func(context.Context) (auth.Result, error)) tea.Cmd {
	m.busy = true
	m.err = ""
	m.status = ""
	ctx := m.ctx

	return func() tea.Msg {
		result, err := op(ctx)
		return authResultMsg(result, err)
	}
}

func (m *Model) federatedSignIn() tea.Cmd {
	if m.google == nil {
		m.err = "Google sign-in is not configured."
		return nil
	}

	flow := m.google
	cmd := m.authCmd(func(ctx context.Context) (auth.Result, error) {
		return m.session.CompleteFederatedSignIn(ctx, flow(ctx))
	})
	m.status = "Complete sign-in in your browser..."
	return cmd
}

func (m *Model) loadRecords(kind models.CollectionKind) tea.Cmd {
	m.busy = true
	ctx := m.ctx

	return func() tea.Msg {
		records, err := m.lists.Records(ctx, kind)
		return recordsLoadedMsg(kind, records, err)
	}
}

func (m *Model) appendRecord(text string) tea.Cmd {
	m.busy = true
	kind, ctx := m.kind, m.ctx

	return func() tea.Msg {
		record, err := m.lists.Append(ctx, kind, text)
		return recordAppendedMsg(kind, record, err)
	}
}

func (m *Model) loadProfile() tea.Cmd {
	m.busy = true
	ctx := m.ctx

	return func() tea.Msg {
		identity, err := m.session.Profile(ctx)
		return profileLoadedMsg(identity, err)
	}
}

func emailInput(value string) textinput.Model {
	in := textinput.New()
	in.Prompt = "Email    "
	in.Placeholder = "you@example.com"
	in.CharLimit = 254
	in.SetValue(value)
	return in
}

func passwordInput() textinput.Model {
	in := textinput.New()
	in.Prompt = "Password "
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	return in
}

func (m *Model) setForm(inputs ...textinput.Model) {
	m.form = inputs
	m.focus = 0
	m.form[0].Focus()
}

func (m *Model) moveFocus(delta int) {
	if len(m.form) == 0 {
		return
	}
	m.form[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.form)) % len(m.form)
	m.form[m.focus].Focus()
}

func (m *Model) formValue(i int) string {
	if i >= len(m.form) {
		return ""
	}
	return m.form[i].Value()
}

// formEmail carries the typed email between the auth screens.
func (m *Model) formEmail() string {
	return m.formValue(0)
}

func (m *Model) renderGuest() string {
	title := styles.title.Render("Welcome to Rize")
	info := "Notes and tasks, kept on this device."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.signIn, m.keys.signUp, m.keys.google, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderForm(title string, bindings ...key.Binding) string {
	lines := []string{styles.title.Render(title)}
	for _, in := range m.form {
		lines = append(lines, in.View())
	}
	lines = append(lines, "", m.help.ShortHelpView(bindings))
	return strings.Join(lines, "\n")
}

func (m *Model) renderHome() string {
	title := styles.title.Render("Home")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.notes, m.keys.tasks, m.keys.profile, m.keys.signOut, m.keys.quit})
	return fmt.Sprintf("%s\n%s", title, helpView)
}

func (m *Model) renderList() string {
	var body string
	if len(m.records.Items()) == 0 {
		body = styles.help.Render("Nothing here yet.")
	} else {
		body = m.records.View()
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.up, m.keys.down, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", styles.title.Render(m.records.Title), m.composer.View(), body, helpView)
}

func (m *Model) renderProfile() string {
	title := styles.title.Render("Profile")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.signOut, m.keys.back, m.keys.quit})
	if m.identity == nil {
		return fmt.Sprintf("%s\n%s", title, helpView)
	}

	verified := styles.warn.Render("not verified")
	if m.identity.Trusted() {
		verified = styles.ok.Render("verified")
	}

	rows := []string{
		styles.label.Render("Email") + m.identity.Email,
		styles.label.Render("Status") + verified,
		styles.label.Render("Provider") + m.identity.ProviderID,
		styles.label.Render("User ID") + m.identity.UID,
	}
	return fmt.Sprintf("%s\n%s\n\n%s", title, strings.Join(rows, "\n"), helpView)
}
