package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/internal/models"

	"gorm.io/gorm"
)

// GormStore persists draws and members through gorm. The *gorm.DB must be
// opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the raffle tables.
func (r *GormStore) Migrate() error {
	return r.db.AutoMigrate(&drawRow{}, &memberRow{})
}

func (r *GormStore) DrawByName(ctx context.Context, name string) (*models.RaffleDraw, error) {
	var row drawRow
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("name = ?", name).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *GormStore) CreateDraw(ctx context.Context, draw *models.RaffleDraw) error {
	row := drawRowFromModel(draw)
	if err := r.db.WithContext(ctx).Omit("Members").Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return duplicateDraw(draw.Name)
		}
		return err
	}
	return nil
}

func (r *GormStore) MemberExists(ctx context.Context, drawID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&memberRow{}).
		Where("draw_id = ? AND email_key = ?", drawID, models.EmailKey(email)).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormStore) CreateMember(ctx context.Context, member *models.Member) error {
	return r.CreateMembers(ctx, []*models.Member{member})
}

// CreateMembers inserts the batch in one transaction, appending after the
// members already entered into each draw.
func (r *GormStore) CreateMembers(ctx context.Context, members []*models.Member) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := make(map[string]int)
		rows := make([]memberRow, 0, len(members))
		for _, m := range members {
			pos, ok := next[m.DrawID]
			if !ok {
				var count int64
				if err := tx.Model(&memberRow{}).Where("draw_id = ?", m.DrawID).Count(&count).Error; err != nil {
					return err
				}
				pos = int(count)
			}
			row := memberRowFromModel(m)
			row.Position = pos
			next[m.DrawID] = pos + 1
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			switch {
			case errors.Is(err, gorm.ErrForeignKeyViolated):
				return missingDraw(members[0].DrawID)
			case errors.Is(err, gorm.ErrDuplicatedKey):
				return fmt.Errorf("%w: %v", models.ErrDuplicateMember, err)
			}
			return err
		}
		return nil
	})
}

func (r *GormStore) CloseDraw(ctx context.Context, drawID, winnerID string, closedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&drawRow{}).
		Where("id = ?", drawID).
		Updates(map[string]any{
			"is_closed":        true,
			"closed_at":        closedAt.UTC(),
			"winner_member_id": winnerID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingDraw(drawID)
	}
	return nil
}

// ClosedDraws returns the winners of closed draws, oldest closing first,
// ties broken by draw ID.
func (r *GormStore) ClosedDraws(ctx context.Context) ([]models.Winner, error) {
	var rows []winnerRow
	err := r.db.WithContext(ctx).
		Table("raffle_draws AS d").
		Select("m.id AS member_id, d.id AS draw_id, m.name AS name, m.email AS email, m.created_at AS created_at").
		Joins("JOIN raffle_members AS m ON m.id = d.winner_member_id").
		Where("d.is_closed = ? AND d.winner_member_id IS NOT NULL", true).
		Order("d.closed_at ASC, d.id ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	winners := make([]models.Winner, 0, len(rows))
	for _, row := range rows {
		winners = append(winners, models.Winner{
			MemberID:  row.MemberID,
			DrawID:    row.DrawID,
			Name:      row.Name,
			Email:     row.Email,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return winners, nil
}

type drawRow struct {
	ID             string      `gorm:"column:id;primaryKey"`
	Name           string      `gorm:"column:name;uniqueIndex;not null"`
	IsClosed       bool        `gorm:"column:is_closed;not null;default:false"`
	CreatedAt      time.Time   `gorm:"column:created_at"`
	ClosedAt       *time.Time  `gorm:"column:closed_at"`
	WinnerMemberID *string     `gorm:"column:winner_member_id"`
	Members        []memberRow `gorm:"foreignKey:DrawID;constraint:OnDelete:CASCADE"`
}

func (drawRow) TableName() string {
	return "raffle_draws"
}

// Position is the member's entry order within its draw. EmailKey is the
// email as compared for uniqueness; SQL LOWER only folds ASCII.
type memberRow struct {
	ID        string    `gorm:"column:id;primaryKey"`
	DrawID    string    `gorm:"column:draw_id;index;not null;uniqueIndex:idx_raffle_members_draw_email"`
	Position  int       `gorm:"column:position;not null"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	EmailKey  string    `gorm:"column:email_key;uniqueIndex:idx_raffle_members_draw_email"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (memberRow) TableName() string {
	return "raffle_members"
}

type winnerRow struct {
	MemberID  string
	DrawID    string
	Name      string
	Email     string
	CreatedAt time.Time
}

func drawRowFromModel(d *models.RaffleDraw) drawRow {
	row := drawRow{
		ID:             d.ID,
		Name:           d.Name,
		IsClosed:       d.IsClosed(),
		CreatedAt:      d.CreatedAt.UTC(),
		WinnerMemberID: d.WinnerMemberID,
	}
	if d.ClosedAt != nil {
		closedAt := d.ClosedAt.UTC()
		row.ClosedAt = &closedAt
	}
	return row
}

func (row drawRow) toModel() *models.RaffleDraw {
	d := &models.RaffleDraw{
		ID:             row.ID,
		Name:           row.Name,
		Status:         models.StatusOpen,
		CreatedAt:      row.CreatedAt.UTC(),
		WinnerMemberID: row.WinnerMemberID,
		Members:        make([]*models.Member, 0, len(row.Members)),
	}
	if row.IsClosed {
		d.Status = models.StatusClosed
	}
	if row.ClosedAt != nil {
		closedAt := row.ClosedAt.UTC()
		d.ClosedAt = &closedAt
	}
	for _, m := range row.Members {
		d.Members = append(d.Members, m.toModel())
	}
	return d
}

func memberRowFromModel(m *models.Member) memberRow {
	return memberRow{
		ID:        m.ID,
		DrawID:    m.DrawID,
		Name:      m.Name,
		Email:     m.Email,
		EmailKey:  models.EmailKey(m.Email),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (row memberRow) toModel() *models.Member {
	return &models.Member{
		ID:        row.ID,
		DrawID:    row.DrawID,
		Name:      row.Name,
		Email:     row.Email,
		CreatedAt: row.CreatedAt.UTC(),
	}
}
