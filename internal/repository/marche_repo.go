package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// MarcheRepository - интерфейс для работы с marchés.
type MarcheRepository interface {
	CreateMarche(ctx context.Context, marche *models.Marche) (*models.Marche, error)
	GetMarche(ctx context.Context, marcheId string) (*models.Marche, error)
	ListMarches(ctx context.Context, limit, offset int, statuts []string) ([]models.Marche, error)
	ListOpenRecours(ctx context.Context) ([]models.Marche, error)
	PatchMarche(ctx context.Context, marcheId string, fields map[string]interface{}) (*models.Marche, error)
	GetHistory(ctx context.Context, marcheId string) ([]models.MarcheVersion, error)
}

const marcheColumns = `id, reference, objet, ppm_year, source_financement, type_ouverture,
	is_annule, motif_annulation, is_infructueux, motif_infructueux, statut_global,
	has_recours, recours, dates_prevues, dates_realisees, version, created_at, updated_at`

// patchColumns - поля, которые можно менять частичным обновлением, в порядке записи в запрос.
var patchColumns = []string{
	"statut_global",
	"is_annule",
	"motif_annulation",
	"is_infructueux",
	"motif_infructueux",
	"has_recours",
	"recours",
	"dates_prevues",
	"dates_realisees",
}

var jsonColumns = map[string]bool{
	"recours":         true,
	"dates_prevues":   true,
	"dates_realisees": true,
}

// PostgresMarcheRepository - реализация MarcheRepository для базы данных.
type PostgresMarcheRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresMarcheRepository создаёт новый экземпляр PostgresMarcheRepository.
func NewPostgresMarcheRepository(db *pgxpool.Pool) *PostgresMarcheRepository {
	return &PostgresMarcheRepository{DB: db}
}

// CreateMarche сохраняет новый marché.
func (r *PostgresMarcheRepository) CreateMarche(ctx context.Context, marche *models.Marche) (*models.Marche, error) {
	now := time.Now().UTC()
	newMarche := *marche
	newMarche.ID = uuid.New().String()
	newMarche.Version = 1
	newMarche.CreatedAt = now
	newMarche.UpdatedAt = now

	recours, prevues, realisees, err := encodeDocuments(&newMarche)
	if err != nil {
		return nil, err
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO marche (`+marcheColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		newMarche.ID,
		newMarche.Reference,
		newMarche.Objet,
		newMarche.PPMYear,
		newMarche.SourceFinancement,
		newMarche.TypeOuverture,
		newMarche.IsAnnule,
		newMarche.MotifAnnulation,
		newMarche.IsInfructueux,
		newMarche.MotifInfructueux,
		newMarche.StatutGlobal,
		newMarche.HasRecours,
		recours,
		prevues,
		realisees,
		newMarche.Version,
		newMarche.CreatedAt,
		newMarche.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.NewErrorResponse(http.StatusConflict, fmt.Sprintf("marche with reference %s already exists", newMarche.Reference))
		}
		return nil, fmt.Errorf("failed to insert marche: %w", err)
	}
	return &newMarche, nil
}

// GetMarche возвращает marché по id.
func (r *PostgresMarcheRepository) GetMarche(ctx context.Context, marcheId string) (*models.Marche, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+marcheColumns+` FROM marche WHERE id = $1`, marcheId)
	marche, err := scanMarche(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMarcheNotFound
		}
		return nil, fmt.Errorf("failed to get marche: %w", err)
	}
	return marche, nil
}

// ListMarches возвращает список marchés с фильтром по статусу.
func (r *PostgresMarcheRepository) ListMarches(ctx context.Context, limit, offset int, statuts []string) ([]models.Marche, error) {
	query := `SELECT ` + marcheColumns + ` FROM marche`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(statuts) > 0 {
		filters = append(filters, fmt.Sprintf("statut_global = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuts))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY ppm_year DESC, reference LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return r.queryMarches(ctx, query, args...)
}

// ListOpenRecours возвращает marchés с незакрытым recours.
func (r *PostgresMarcheRepository) ListOpenRecours(ctx context.Context) ([]models.Marche, error) {
	query := `SELECT ` + marcheColumns + ` FROM marche
	          WHERE has_recours AND recours IS NOT NULL AND recours->>'date_cloture' IS NULL
	          ORDER BY reference`
	return r.queryMarches(ctx, query)
}

// PatchMarche частично обновляет marché: сохраняет текущую версию в историю,
// применяет поля и увеличивает версию.
func (r *PostgresMarcheRepository) PatchMarche(ctx context.Context, marcheId string, fields map[string]interface{}) (*models.Marche, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	for _, column := range patchColumns {
		value, ok := fields[column]
		if !ok {
			continue
		}
		if rec, isRecours := value.(*models.Recours); isRecours && rec == nil {
			value = nil
		} else if jsonColumns[column] {
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", column, err)
			}
			value = encoded
		}
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if len(updates) != len(fields) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "unknown fields in update")
	}
	if len(updates) == 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "no valid fields to update")
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanMarche(tx.QueryRow(ctx, `SELECT `+marcheColumns+` FROM marche WHERE id = $1 FOR UPDATE`, marcheId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMarcheNotFound
		}
		return nil, fmt.Errorf("failed to lock marche: %w", err)
	}

	snapshot, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO marche_history (marche_id, version, snapshot, created_at) VALUES ($1, $2, $3, $4)`,
		current.ID, current.Version, snapshot, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to write history: %w", err)
	}

	updates = append(updates, "version = version + 1", "updated_at = now()")
	updateQuery := `UPDATE marche SET ` + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argIndex) + marcheColumns
	args = append(args, marcheId)

	updated, err := scanMarche(tx.QueryRow(ctx, updateQuery, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update marche: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit marche update: %w", err)
	}
	return updated, nil
}

// GetHistory возвращает сохранённые версии marché, от новых к старым.
func (r *PostgresMarcheRepository) GetHistory(ctx context.Context, marcheId string) ([]models.MarcheVersion, error) {
	rows, err := r.DB.Query(ctx, `SELECT version, snapshot, created_at FROM marche_history
	                              WHERE marche_id = $1 ORDER BY version DESC`, marcheId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []models.MarcheVersion
	for rows.Next() {
		var v models.MarcheVersion
		var snapshot []byte
		if err := rows.Scan(&v.Version, &snapshot, &v.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot v%d: %w", v.Version, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *PostgresMarcheRepository) queryMarches(ctx context.Context, query string, args ...interface{}) ([]models.Marche, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marches []models.Marche
	for rows.Next() {
		marche, err := scanMarche(rows)
		if err != nil {
			return nil, err
		}
		marches = append(marches, *marche)
	}
	return marches, rows.Err()
}

func scanMarche(row pgx.Row) (*models.Marche, error) {
	var m models.Marche
	var recours, prevues, realisees []byte
	err := row.Scan(
		&m.ID,
		&m.Reference,
		&m.Objet,
		&m.PPMYear,
		&m.SourceFinancement,
		&m.TypeOuverture,
		&m.IsAnnule,
		&m.MotifAnnulation,
		&m.IsInfructueux,
		&m.MotifInfructueux,
		&m.StatutGlobal,
		&m.HasRecours,
		&recours,
		&prevues,
		&realisees,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(recours) > 0 {
		if err := json.Unmarshal(recours, &m.Recours); err != nil {
			return nil, fmt.Errorf("failed to decode recours: %w", err)
		}
	}
	if err := decodeDates(prevues, &m.DatesPrevues); err != nil {
		return nil, err
	}
	if err := decodeDates(realisees, &m.DatesRealisees); err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeDates(raw []byte, dst *map[string]string) error {
	*dst = map[string]string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode dates: %w", err)
	}
	if *dst == nil {
		*dst = map[string]string{}
	}
	return nil
}

func encodeDocuments(m *models.Marche) (recours, prevues, realisees []byte, err error) {
	if m.Recours != nil {
		if recours, err = json.Marshal(m.Recours); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode recours: %w", err)
		}
	}
	if m.DatesPrevues == nil {
		m.DatesPrevues = map[string]string{}
	}
	if m.DatesRealisees == nil {
		m.DatesRealisees = map[string]string{}
	}
	if prevues, err = json.Marshal(m.DatesPrevues); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode dates: %w", err)
	}
	if realisees, err = json.Marshal(m.DatesRealisees); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode dates: %w", err)
	}
	return recours, prevues, realisees, nil
}
