package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

// assetRepo implements AssetRepo for PostgreSQL
type assetRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAssetRepo creates a PostgreSQL asset repository
func NewAssetRepo(db *sqlx.DB, timeout time.Duration) persistence.AssetRepo {
	return &assetRepo{db: db, timeout: timeout}
}

// SaveAssetInfo upserts one reference row keyed (symbol, market)
func (r *assetRepo) SaveAssetInfo(ctx context.Context, asset models.Asset) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(asset.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	query := `
		INSERT INTO asset_info (symbol, market, name, asset_kind, currency, exchange, sector, industry, active, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (symbol, market) DO UPDATE SET
			name = EXCLUDED.name,
			asset_kind = EXCLUDED.asset_kind,
			currency = EXCLUDED.currency,
			exchange = EXCLUDED.exchange,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			active = EXCLUDED.active,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		asset.Symbol, asset.Market, asset.Name, asset.AssetKind,
		asset.Currency, asset.Exchange, asset.Sector, asset.Industry,
		asset.Active, metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to save asset info: %w", err)
	}
	return nil
}

// GetAssetInfo selects one reference row, nil when absent
func (r *assetRepo) GetAssetInfo(ctx context.Context, symbol string, market models.Market) (*models.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, market, name, asset_kind, currency, exchange, sector, industry, active, metadata, updated_at
		FROM asset_info
		WHERE symbol = $1 AND market = $2`

	var asset models.Asset
	var metadataJSON []byte
	err := r.db.QueryRowxContext(ctx, query, symbol, market).Scan(
		&asset.Symbol, &asset.Market, &asset.Name, &asset.AssetKind,
		&asset.Currency, &asset.Exchange, &asset.Sector, &asset.Industry,
		&asset.Active, &metadataJSON, &asset.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset info: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &asset.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal asset metadata: %w", err)
		}
	}
	return &asset, nil
}

// GetSymbolsByMarket returns active symbols for a market
func (r *assetRepo) GetSymbolsByMarket(ctx context.Context, market models.Market) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol
		FROM asset_info
		WHERE market = $1 AND active = TRUE
		ORDER BY symbol`

	var symbols []string
	if err := r.db.SelectContext(ctx, &symbols, query, market); err != nil {
		return nil, fmt.Errorf("failed to get symbols by market: %w", err)
	}
	return symbols, nil
}
