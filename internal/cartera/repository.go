package cartera

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/internal/contracts"
)

// Repository reads loan records from the creditos table
type Repository struct {
	db  *pgxpool.Pool
	loc *time.Location
	log zerolog.Logger
}

// NewRepository creates a new Repository instance. Dates stored without
// a zone are read as wall time in loc.
func NewRepository(db *pgxpool.Pool, loc *time.Location, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		loc: loc,
		log: log.With().Str("component", "cartera_repository").Logger(),
	}
}

// dateColumns are the creation date columns, in fallback order
var dateColumns = []string{"created_at", "fecha_solicitud", "fecha"}

// ListRecords returns every credit, oldest first. Numeric and date
// columns are read as text so the record parsers see the same shape as
// file input.
func (r *Repository) ListRecords(ctx context.Context) ([]contracts.LoanRecord, error) {
	cols, err := r.presentDateColumns(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, listQuery(cols))
	if err != nil {
		return nil, fmt.Errorf("query creditos: %w", err)
	}
	defer rows.Close()

	var records []contracts.LoanRecord
	for rows.Next() {
		var (
			rec     contracts.LoanRecord
			created string
		)
		if err := rows.Scan(
			&rec.Acta,
			&rec.PartnerName,
			&rec.Advisor,
			&rec.Amount,
			&rec.Term,
			&rec.Rate,
			&rec.Status,
			&created,
		); err != nil {
			return nil, fmt.Errorf("scan credito: %w", err)
		}

		rec.CreatedAt, err = contracts.ParseTimestamp(created, r.loc)
		if err != nil {
			r.log.Warn().Err(err).Str("acta", rec.Acta).Msg("Unparseable date, record kept outside every period")
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creditos: %w", err)
	}

	return records, nil
}

// presentDateColumns returns the dateColumns the creditos table has
func (r *Repository) presentDateColumns(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
			AND table_name = 'creditos'
			AND column_name = ANY($1)
	`, dateColumns)
	if err != nil {
		return nil, fmt.Errorf("inspect creditos columns: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(dateColumns))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect creditos columns: %w", err)
	}

	var cols []string
	for _, c := range dateColumns {
		if found[c] {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// listQuery selects every credit, taking the creation date from the
// first non-null of cols
func listQuery(cols []string) string {
	created := "''"
	order := ""
	if len(cols) > 0 {
		parts := make([]string, 0, len(cols)+1)
		for _, c := range cols {
			parts = append(parts, c+"::text")
		}
		parts = append(parts, "''")
		created = "COALESCE(" + strings.Join(parts, ", ") + ")"
		order = "ORDER BY " + cols[0] + " ASC NULLS LAST"
	}

	return fmt.Sprintf(`
		SELECT
			COALESCE(acta::text, ''),
			COALESCE(nombre_socio, ''),
			COALESCE(asesor_credito, ''),
			COALESCE(monto_aprobado::text, ''),
			COALESCE(plazo::text, ''),
			COALESCE(interes::text, ''),
			COALESCE(estado_credito, ''),
			%s
		FROM creditos
		%s
	`, created, order)
}

// Count returns the number of credits
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM creditos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count creditos: %w", err)
	}
	return n, nil
}
