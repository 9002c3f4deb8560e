package settings

import (
	"context"
	"errors"
	"testing"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"

	"github.com/google/go-cmp/cmp"
)

type memoryRepo struct {
	saved map[string]domain.MerchantSettings
	err   error
}

func (m *memoryRepo) GetSettings(shop string) (*domain.MerchantSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.saved[shop]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryRepo) SaveSettings(s domain.MerchantSettings) error {
	m.saved[s.Shop] = s
	return nil
}

func (m *memoryRepo) ListShops() ([]string, error) { return nil, nil }

func TestRepositoryLoader(t *testing.T) {
	saved := domain.Fallback()
	saved.Shop = "demo"
	saved.SelectedCurrencies = []string{"GBP"}
	saved.DefaultCurrency = "GBP"
	saved.MerchantDefault = true

	repo := &memoryRepo{saved: map[string]domain.MerchantSettings{"demo": saved}}
	m := &infra.Metrics{}
	l := NewRepositoryLoader(repo, m)

	if diff := cmp.Diff(saved, l.Load(context.Background(), "demo")); diff != "" {
		t.Errorf("saved shop mismatch (-want +got):\n%s", diff)
	}

	want := domain.Fallback()
	want.Shop = "other"
	if diff := cmp.Diff(want, l.Load(context.Background(), "other")); diff != "" {
		t.Errorf("unknown shop mismatch (-want +got):\n%s", diff)
	}

	repo.err = errors.New("disk gone")
	want.Shop = "demo"
	if diff := cmp.Diff(want, l.Load(context.Background(), "demo")); diff != "" {
		t.Errorf("failing store mismatch (-want +got):\n%s", diff)
	}

	if got := m.Snapshot().SettingsFallbacks; got != 2 {
		t.Errorf("fallbacks = %d, want 2", got)
	}
}
