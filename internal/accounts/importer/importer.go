package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadbridge/internal/accounts/domain"
	"leadbridge/internal/accounts/repository"
	"leadbridge/internal/auth/password"
	"leadbridge/platform/logger"
	"leadbridge/platform/phone"
	"leadbridge/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) (domain.User, error)
	ListUsers(ctx context.Context, f repository.UserFilter) ([]domain.User, error)
	GetReferrerProfile(ctx context.Context, userID uuid.UUID) (domain.ReferrerProfile, error)
	UpsertReferrerProfile(ctx context.Context, p domain.ReferrerProfile) (domain.ReferrerProfile, error)
}

type Options struct {
	UsernameDomain         string
	DefaultPassword        string
	DefaultCommissionTotal int64
	DryRun                 bool
}

// Record is a validated source row.
type Record struct {
	Line        int
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Role        domain.Role
	ManagerName string
	ReferrerPct decimal.Decimal
	ManagerPct  decimal.Decimal
	OfficePct   decimal.Decimal
}

func (r Record) FullName() string {
	return r.FirstName + " " + r.LastName
}

type Summary struct {
	Read     int
	Created  int
	Updated  int
	Skipped  int
	Errors   int
	Profiles int
	Warnings []string
}

func (s *Summary) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

type Importer struct {
	store Store
	opts  Options
	log   *logger.Logger
}

func New(store Store, opts Options, log *logger.Logger) *Importer {
	if opts.DefaultCommissionTotal <= 0 {
		opts.DefaultCommissionTotal = domain.DefaultCommissionTotalPerMillion
	}
	return &Importer{store: store, opts: opts, log: log}
}

// Prepare validates rows. Rows without a name or with an unknown role are
// skipped; unparsable percentages become zero.
func (im *Importer) Prepare(rows []Row, summary *Summary) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		first := sanitize.Line(row.Get(ColFirstName))
		last := sanitize.Line(row.Get(ColLastName))
		if first == "" || last == "" {
			summary.Skipped++
			summary.warn("řádek %d: chybí jméno nebo příjmení", row.Line)
			continue
		}
		role, ok := ParseRole(row.Get(ColRole))
		if !ok {
			summary.Skipped++
			summary.warn("řádek %d: neznámá role %q", row.Line, row.Get(ColRole))
			continue
		}

		rec := Record{
			Line:        row.Line,
			FirstName:   first,
			LastName:    last,
			Email:       strings.ToLower(row.Get(ColEmail)),
			Phone:       phone.NormalizeE164(row.Get(ColPhone)),
			Role:        role,
			ManagerName: sanitize.Line(row.Get(ColManager)),
		}
		if rec.Email == "" {
			rec.Email = Username(first, last, im.opts.UsernameDomain)
		}

		var pctErr error
		rec.ReferrerPct, pctErr = ParsePct(row.Get(ColReferrerPct))
		if pctErr == nil {
			rec.ManagerPct, pctErr = ParsePct(row.Get(ColManagerPct))
		}
		if pctErr == nil {
			rec.OfficePct, pctErr = ParsePct(row.Get(ColOfficePct))
		}
		if pctErr != nil {
			rec.ReferrerPct, rec.ManagerPct, rec.OfficePct = decimal.Zero, decimal.Zero, decimal.Zero
			summary.warn("řádek %d: neplatné hodnoty provizí, nastaveno na 0", row.Line)
		}
		records = append(records, rec)
	}
	summary.Read = len(records)
	return records
}

// Run imports the rows in two passes: users first, then referrer profiles
// with their manager links. A dry run only reads.
func (im *Importer) Run(ctx context.Context, rows []Row) (Summary, error) {
	var summary Summary
	records := im.Prepare(rows, &summary)
	if im.opts.DryRun {
		im.log.Info("dry run, nothing will be written", "records", len(records))
	}

	passwordHash := ""
	if !im.opts.DryRun {
		if len(im.opts.DefaultPassword) < password.MinLength {
			return summary, fmt.Errorf("default password must have at least %d characters", password.MinLength)
		}
		hash, err := password.Hash(im.opts.DefaultPassword)
		if err != nil {
			return summary, err
		}
		passwordHash = hash
	}

	ids := make(map[string]uuid.UUID, len(records))
	for _, rec := range records {
		id, created, err := im.upsertUser(ctx, rec, passwordHash)
		if err != nil {
			summary.Errors++
			summary.warn("řádek %d: %s: %v", rec.Line, rec.Email, err)
			continue
		}
		ids[rec.Email] = id
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	managers, err := im.managerCandidates(ctx, records, ids)
	if err != nil {
		return summary, err
	}
	for _, rec := range records {
		id, ok := ids[rec.Email]
		if !ok || !rec.Role.IsStructure() {
			continue
		}
		var managerID *uuid.UUID
		if rec.ManagerName != "" {
			managerID, err = matchManager(managers, rec.ManagerName)
			if err != nil {
				summary.warn("%s: %v", rec.Email, err)
			}
		}
		if err := im.upsertProfile(ctx, id, managerID); err != nil {
			summary.Errors++
			summary.warn("%s: profil: %v", rec.Email, err)
			continue
		}
		summary.Profiles++
	}

	im.log.Info("user import finished",
		"dryRun", im.opts.DryRun,
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
	)
	return summary, nil
}

// upsertUser matches by e-mail. The password and commission total are only
// set on create.
func (im *Importer) upsertUser(ctx context.Context, rec Record, passwordHash string) (uuid.UUID, bool, error) {
	existing, err := im.store.GetUserByEmail(ctx, rec.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u := domain.User{
			Email:        rec.Email,
			PasswordHash: passwordHash,
			IsActive:     true,
			Rates:        domain.CommissionRates{TotalPerMillion: im.opts.DefaultCommissionTotal},
			Advisor:      domain.AdvisorTerms{Type: domain.FullMinusStructure},
		}
		rec.applyTo(&u)
		if err := u.Validate(); err != nil {
			return uuid.Nil, false, err
		}
		if im.opts.DryRun {
			return uuid.New(), true, nil
		}
		created, err := im.store.CreateUser(ctx, u)
		if err != nil {
			return uuid.Nil, false, err
		}
		im.log.Info("user created", "email", created.Email)
		return created.ID, true, nil
	case err != nil:
		return uuid.Nil, false, err
	}

	existing.PasswordHash = ""
	rec.applyTo(&existing)
	if err := existing.Validate(); err != nil {
		return uuid.Nil, false, err
	}
	if im.opts.DryRun {
		return existing.ID, false, nil
	}
	if _, err := im.store.UpdateUser(ctx, existing); err != nil {
		return uuid.Nil, false, err
	}
	im.log.Info("user updated", "email", existing.Email)
	return existing.ID, false, nil
}

func (r Record) applyTo(u *domain.User) {
	u.FirstName = r.FirstName
	u.LastName = r.LastName
	u.Phone = r.Phone
	u.Role = r.Role
	u.Rates.ReferrerPct = r.ReferrerPct
	u.Rates.ManagerPct = r.ManagerPct
	u.Rates.OfficePct = r.OfficePct
}

// upsertProfile keeps an existing advisor pool and sticky advisor.
func (im *Importer) upsertProfile(ctx context.Context, userID uuid.UUID, managerID *uuid.UUID) error {
	if im.opts.DryRun {
		return nil
	}
	profile, err := im.store.GetReferrerProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	profile.UserID = userID
	profile.ManagerID = managerID
	_, err = im.store.UpsertReferrerProfile(ctx, profile)
	return err
}

type candidate struct {
	id    uuid.UUID
	first string
	last  string
}

// managerCandidates lists stored managers and offices plus those from this
// file, so a dry run resolves names the same way a real run would.
func (im *Importer) managerCandidates(ctx context.Context, records []Record, ids map[string]uuid.UUID) ([]candidate, error) {
	stored, err := im.store.ListUsers(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleReferrerManager, domain.RoleOffice}})
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(stored))
	out := make([]candidate, 0, len(stored))
	for _, u := range stored {
		seen[u.ID] = true
		out = append(out, candidate{id: u.ID, first: Fold(u.FirstName), last: Fold(u.LastName)})
	}
	for _, rec := range records {
		id, ok := ids[rec.Email]
		if !ok || seen[id] || !rec.Role.CanManageReferrers() {
			continue
		}
		seen[id] = true
		out = append(out, candidate{id: id, first: Fold(rec.FirstName), last: Fold(rec.LastName)})
	}
	return out, nil
}

func matchManager(candidates []candidate, name string) (*uuid.UUID, error) {
	first, last, ok := SplitName(name)
	if !ok {
		return nil, fmt.Errorf("manažer %q: chybí příjmení", name)
	}
	first, last = Fold(first), Fold(last)
	var found []uuid.UUID
	for _, c := range candidates {
		if c.first == first && c.last == last {
			found = append(found, c.id)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("manažer %q nenalezen", name)
	case 1:
		return &found[0], nil
	}
	return nil, fmt.Errorf("více manažerů se jménem %q", name)
}
