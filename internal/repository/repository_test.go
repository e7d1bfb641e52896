package repository

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hitoshi/nimart/internal/model"
)

// 各Postgresリポジトリがインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
	var _ ProviderRepository = (*PostgresProviderRepo)(nil)
	var _ ReviewRepository = (*PostgresReviewRepo)(nil)
	var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
	var _ OTPRepository = (*PostgresOTPRepo)(nil)
	var _ CatalogRepository = (*PostgresCatalogRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresProfileRepo(nil) == nil ||
		NewPostgresProviderRepo(nil) == nil ||
		NewPostgresReviewRepo(nil) == nil ||
		NewPostgresNotificationRepo(nil) == nil ||
		NewPostgresOTPRepo(nil) == nil ||
		NewPostgresCatalogRepo(nil) == nil {
		t.Fatal("expected non-nil repos")
	}
}

func TestBuildProviderListQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.ProviderFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "条件なし",
			filter:    model.ProviderFilter{},
			wantWhere: "",
			wantArgs:  []any{50},
		},
		{
			name:      "州のみ",
			filter:    model.ProviderFilter{State: "Lagos", Limit: 10},
			wantWhere: " WHERE state = $1",
			wantArgs:  []any{"Lagos", 10},
		},
		{
			name:      "州とサービス",
			filter:    model.ProviderFilter{State: "Oyo", ServiceType: "plumbing", Limit: 20},
			wantWhere: " WHERE state = $1 AND service_type = $2",
			wantArgs:  []any{"Oyo", "plumbing", 20},
		},
		{
			name:      "上限を超えるlimit",
			filter:    model.ProviderFilter{ServiceType: "catering", Limit: 10000},
			wantWhere: " WHERE service_type = $1",
			wantArgs:  []any{"catering", 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildProviderListQuery(tt.filter)

			if tt.wantWhere != "" && !strings.Contains(query, tt.wantWhere+" ORDER BY") {
				t.Errorf("query = %q, want WHERE clause %q", query, tt.wantWhere)
			}
			if tt.wantWhere == "" && strings.Contains(query, "WHERE") {
				t.Errorf("query = %q, want no WHERE clause", query)
			}
			if !strings.HasSuffix(query, "LIMIT $"+string(rune('0'+len(tt.wantArgs)))) {
				t.Errorf("query = %q, want LIMIT placeholder $%d", query, len(tt.wantArgs))
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
