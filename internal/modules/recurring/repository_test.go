package recurring

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/folio/internal/modules/portfolio"
)

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	created, err := repo.Create(monthlyDeposit("p1"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	got, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.PortfolioID)
	assert.Equal(t, portfolio.TypeDeposit, got.Type)
	assert.True(t, got.Amount.Equal(dec("500")))
	assert.Equal(t, "@monthly", got.Schedule)
	assert.Nil(t, got.LastRun)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryCreateValidates(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	cases := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"missing portfolio", func(p *Plan) { p.PortfolioID = "" }},
		{"buy plan", func(p *Plan) { p.Type = portfolio.TypeBuy; p.AssetID = "a" }},
		{"sell plan", func(p *Plan) { p.Type = portfolio.TypeSell; p.AssetID = "a" }},
		{"dividend without asset", func(p *Plan) { p.Type = portfolio.TypeDividend }},
		{"zero amount", func(p *Plan) { p.Amount = dec("0") }},
		{"missing currency", func(p *Plan) { p.Currency = "" }},
		{"missing schedule", func(p *Plan) { p.Schedule = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := monthlyDeposit("p1")
			tc.mutate(plan)
			_, err := repo.Create(plan)
			assert.Error(t, err)
		})
	}
}

func TestRepositoryActiveFiltering(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	p1, err := repo.Create(monthlyDeposit("p1"))
	require.NoError(t, err)
	p2, err := repo.Create(monthlyDeposit("p2"))
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(p2.ID, false))

	active, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, p1.ID, active[0].ID)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, repo.SetActive("missing", true))
}

func TestRepositorySetLastRun(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	plan, err := repo.Create(monthlyDeposit("p1"))
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastRun(plan.ID, at))

	got, err := repo.GetByID(plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, at, got.LastRun.UTC())
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	plan, err := repo.Create(monthlyDeposit("p1"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(plan.ID))
	assert.Error(t, repo.Delete(plan.ID))

	got, err := repo.GetByID(plan.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
