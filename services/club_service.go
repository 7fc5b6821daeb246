package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/storage"
	"github.com/Dosada05/checked/utils"
)

const maxLogoSize = 2 << 20

var ErrLogoTooLarge = errors.New("Logo must be 2MB or smaller")

type ClubInput struct {
	Name         *string          `json:"name"`
	LogoURL      *string          `json:"logo_url"`
	County       *string          `json:"county"`
	ClubType     *models.ClubType `json:"club_type"`
	Description  *string          `json:"description"`
	ContactPhone *string          `json:"contact_phone"`
	ContactEmail *string          `json:"contact_email"`
	IsActive     *bool            `json:"is_active"`
	IsVerified   *bool            `json:"is_verified"`
}

type ClubListFilter struct {
	County   string
	ClubType string
	Search   string
	Inactive bool
	SortBy   repositories.ClubSort
	Page     int
	PageSize int
}

type ClubPage struct {
	Clubs    []*models.Club `json:"clubs"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type ClubMember struct {
	ID               string  `json:"id"`
	ChessComUsername string  `json:"chess_com_username"`
	RatingRapid      *int    `json:"rating_rapid"`
	RatingBlitz      *int    `json:"rating_blitz"`
	Avatar           *string `json:"avatar"`
}

type ClubDetail struct {
	*models.Club
	Members []ClubMember `json:"members"`
	Rank    int          `json:"rank"`
}

type ClubStats struct {
	MemberCount    int `json:"member_count"`
	AverageRating  int `json:"average_rating"`
	TotalPoints    int `json:"total_points"`
	TournamentWins int `json:"tournament_wins"`
}

// ClubService manages clubs and their membership.
type ClubService interface {
	List(ctx context.Context, filter ClubListFilter) (*ClubPage, error)
	Counties(ctx context.Context) ([]repositories.CountyClubCount, error)
	Get(ctx context.Context, id string) (*ClubDetail, error)
	Create(ctx context.Context, in ClubInput) (*models.Club, error)
	Update(ctx context.Context, id string, in ClubInput) (*models.Club, error)
	Delete(ctx context.Context, id string) error

	Join(ctx context.Context, player *models.Player, clubID string) (string, error)
	Leave(ctx context.Context, player *models.Player, clubID string) (string, error)
	AddMember(ctx context.Context, clubID, playerID string) (string, error)
	RemoveMember(ctx context.Context, clubID, playerID string) error

	RefreshStats(ctx context.Context, clubID string) (*ClubStats, error)
	RefreshAllStats(ctx context.Context) (int, error)
	UploadLogo(ctx context.Context, clubID, contentType string, size int64, r io.Reader) (*models.Club, error)
}

type clubService struct {
	db         *sql.DB
	clubs      repositories.ClubRepository
	players    repositories.PlayerRepository
	uploader   storage.FileUploader
	publicBase string
	logger     *slog.Logger
}

// NewClubService builds the service. uploader may be nil when object storage
// is not configured; logo uploads then fail with ErrServiceUnavailable.
func NewClubService(
	db *sql.DB,
	clubs repositories.ClubRepository,
	players repositories.PlayerRepository,
	uploader storage.FileUploader,
	publicBaseURL string,
	logger *slog.Logger,
) ClubService {
	return &clubService{
		db:         db,
		clubs:      clubs,
		players:    players,
		uploader:   uploader,
		publicBase: publicBaseURL,
		logger:     orDefaultLogger(logger),
	}
}

func (s *clubService) getClub(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Club, error) {
	c, err := s.clubs.GetByID(ctx, exec, id)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrClubNotFound, ErrClubNotFound)
	}
	return c, nil
}

func (s *clubService) getPlayer(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.players.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, repositories.ErrPlayerNotFound, ErrPlayerNotFound)
	}
	return p, nil
}

func (s *clubService) List(ctx context.Context, filter ClubListFilter) (*ClubPage, error) {
	page := max(filter.Page, 1)
	size := clampLimit(filter.PageSize, 20, 100)
	clubs, total, err := s.clubs.List(ctx, repositories.ListClubsFilter{
		County:   filter.County,
		ClubType: filter.ClubType,
		Search:   filter.Search,
		IsActive: !filter.Inactive,
		SortBy:   filter.SortBy,
		Limit:    size,
		Offset:   (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	return &ClubPage{Clubs: clubs, Total: total, Page: page, PageSize: size}, nil
}

func (s *clubService) Counties(ctx context.Context) ([]repositories.CountyClubCount, error) {
	return s.clubs.CountByCounty(ctx)
}

func (s *clubService) Get(ctx context.Context, id string) (*ClubDetail, error) {
	club, err := s.getClub(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	rank, err := s.clubs.Rank(ctx, club.TotalPoints)
	if err != nil {
		return nil, err
	}
	members, err := s.players.ListByClub(ctx, id, true)
	if err != nil {
		return nil, err
	}
	out := &ClubDetail{Club: club, Rank: rank, Members: make([]ClubMember, 0, len(members))}
	for _, m := range members {
		out.Members = append(out.Members, ClubMember{
			ID:               m.ID,
			ChessComUsername: m.ChessComUsername,
			RatingRapid:      m.RatingRapid,
			RatingBlitz:      m.RatingBlitz,
			Avatar:           m.ChessComAvatar,
		})
	}
	rapid := func(m ClubMember) int {
		if m.RatingRapid == nil {
			return 0
		}
		return *m.RatingRapid
	}
	sort.SliceStable(out.Members, func(i, j int) bool { return rapid(out.Members[i]) > rapid(out.Members[j]) })
	return out, nil
}

func (in ClubInput) apply(c *models.Club) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < 2 || len(name) > 100 {
			return invalid("Club name must be 2-100 characters")
		}
		c.Name = name
	}
	if in.LogoURL != nil {
		c.LogoURL = optional(*in.LogoURL)
	}
	if in.County != nil {
		if *in.County != "" && !utils.IsCounty(*in.County) {
			return invalid("Unknown county: %s", *in.County)
		}
		c.County = *in.County
	}
	if in.ClubType != nil {
		if !in.ClubType.Valid() {
			return invalid("club_type must be one of: corporate, school, community, county")
		}
		c.ClubType = *in.ClubType
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.ContactPhone != nil {
		c.ContactPhone = optional(*in.ContactPhone)
	}
	if in.ContactEmail != nil {
		c.ContactEmail = optional(*in.ContactEmail)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.IsVerified != nil {
		c.IsVerified = *in.IsVerified
	}
	return nil
}

func (s *clubService) ensureNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.clubs.GetByNameFold(ctx, strings.TrimSpace(name))
	switch {
	case errors.Is(err, repositories.ErrClubNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != exceptID:
		return detail(ErrConflict, "Club with this name already exists")
	}
	return nil
}

func (s *clubService) Create(ctx context.Context, in ClubInput) (*models.Club, error) {
	if in.Name == nil {
		return nil, invalid("Club name is required")
	}
	if err := s.ensureNameFree(ctx, *in.Name, ""); err != nil {
		return nil, err
	}
	club := &models.Club{ClubType: models.ClubTypeCommunity, IsActive: true}
	in.IsActive, in.IsVerified = nil, nil
	if err := in.apply(club); err != nil {
		return nil, err
	}
	if err := s.clubs.Create(ctx, club); err != nil {
		if errors.Is(err, repositories.ErrClubNameConflict) {
			return nil, detail(ErrConflict, "Club with this name already exists")
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "club created", slog.String("club_id", club.ID), slog.String("name", club.Name))
	return club, nil
}

func (s *clubService) Update(ctx context.Context, id string, in ClubInput) (*models.Club, error) {
	club, err := s.getClub(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && !strings.EqualFold(strings.TrimSpace(*in.Name), club.Name) {
		if err := s.ensureNameFree(ctx, *in.Name, club.ID); err != nil {
			return nil, err
		}
	}
	if err := in.apply(club); err != nil {
		return nil, err
	}
	if err := s.clubs.Update(ctx, club); err != nil {
		if errors.Is(err, repositories.ErrClubNameConflict) {
			return nil, detail(ErrConflict, "Club with this name already exists")
		}
		return nil, notFoundAs(err, repositories.ErrClubNotFound, ErrClubNotFound)
	}
	return club, nil
}

// Delete deactivates the club and detaches its members.
func (s *clubService) Delete(ctx context.Context, id string) error {
	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.getClub(ctx, tx, id); err != nil {
			return err
		}
		if err := s.clubs.DetachMembers(ctx, tx, id); err != nil {
			return err
		}
		return s.clubs.Deactivate(ctx, tx, id)
	})
}

func (s *clubService) Join(ctx context.Context, player *models.Player, clubID string) (string, error) {
	var name string
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		club, err := s.getClub(ctx, tx, clubID)
		if err != nil {
			return err
		}
		if !club.IsActive {
			return invalid("Club is not active")
		}
		if player.ClubID != nil {
			if *player.ClubID == clubID {
				return invalid("Already a member of this club")
			}
			return invalid("Already a member of another club. Leave current club first.")
		}
		if err := s.players.SetClub(ctx, tx, player.ID, &club.ID, &club.Name); err != nil {
			return err
		}
		name = club.Name
		return s.clubs.AdjustMemberCount(ctx, tx, club.ID, 1)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully joined %s", name), nil
}

func (s *clubService) Leave(ctx context.Context, player *models.Player, clubID string) (string, error) {
	if player.ClubID == nil || *player.ClubID != clubID {
		return "", invalid("Not a member of this club")
	}
	var name string
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		club, err := s.getClub(ctx, tx, clubID)
		if err != nil {
			return err
		}
		if err := s.players.SetClub(ctx, tx, player.ID, nil, nil); err != nil {
			return err
		}
		name = club.Name
		return s.clubs.AdjustMemberCount(ctx, tx, club.ID, -1)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully left %s", name), nil
}

// AddMember moves a player into the club, leaving any previous club.
func (s *clubService) AddMember(ctx context.Context, clubID, playerID string) (string, error) {
	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return "", err
	}
	var name string
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		club, err := s.getClub(ctx, tx, clubID)
		if err != nil {
			return err
		}
		if player.ClubID != nil && *player.ClubID == clubID {
			return invalid("Player is already a member")
		}
		if player.ClubID != nil {
			err := s.clubs.AdjustMemberCount(ctx, tx, *player.ClubID, -1)
			if err != nil && !errors.Is(err, repositories.ErrClubNotFound) {
				return err
			}
		}
		if err := s.players.SetClub(ctx, tx, player.ID, &club.ID, &club.Name); err != nil {
			return err
		}
		name = club.Name
		return s.clubs.AdjustMemberCount(ctx, tx, club.ID, 1)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s to %s", player.ChessComUsername, name), nil
}

func (s *clubService) RemoveMember(ctx context.Context, clubID, playerID string) error {
	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if _, err := s.getClub(ctx, tx, clubID); err != nil {
			return err
		}
		if player.ClubID == nil || *player.ClubID != clubID {
			return invalid("Player is not a member of this club")
		}
		if err := s.players.SetClub(ctx, tx, player.ID, nil, nil); err != nil {
			return err
		}
		return s.clubs.AdjustMemberCount(ctx, tx, clubID, -1)
	})
}

func (s *clubService) recompute(ctx context.Context, exec repositories.SQLExecutor, club *models.Club) error {
	members, avg, err := s.clubs.ComputeMemberStats(ctx, exec, club.ID)
	if err != nil {
		return err
	}
	if err := s.clubs.SetStats(ctx, exec, club.ID, members, avg); err != nil {
		return err
	}
	club.MemberCount, club.AverageRating = members, avg
	return nil
}

func (s *clubService) RefreshStats(ctx context.Context, clubID string) (*ClubStats, error) {
	club, err := s.getClub(ctx, nil, clubID)
	if err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, nil, club); err != nil {
		return nil, err
	}
	return &ClubStats{
		MemberCount:    club.MemberCount,
		AverageRating:  club.AverageRating,
		TotalPoints:    club.TotalPoints,
		TournamentWins: club.TournamentWins,
	}, nil
}

func (s *clubService) RefreshAllStats(ctx context.Context) (int, error) {
	clubs, err := s.clubs.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		for _, c := range clubs {
			if err := s.recompute(ctx, tx, c); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UploadLogo stores a new logo in object storage and removes the previous one.
func (s *clubService) UploadLogo(ctx context.Context, clubID, contentType string, size int64, r io.Reader) (*models.Club, error) {
	if s.uploader == nil {
		return nil, detail(ErrServiceUnavailable, "File storage is not configured")
	}
	ext, ok := storage.LogoExtension(contentType)
	if !ok {
		return nil, invalid("Logo must be a PNG, JPEG, WebP or SVG image")
	}
	if size > maxLogoSize {
		return nil, detail(ErrValidationFailed, "%s", ErrLogoTooLarge.Error())
	}
	club, err := s.getClub(ctx, nil, clubID)
	if err != nil {
		return nil, err
	}

	result, err := s.uploader.Upload(ctx, storage.ClubLogoKey(club.ID, ext, nowUTC()), contentType, io.LimitReader(r, maxLogoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	url := s.uploader.GetPublicURL(result.Key)
	if url == "" {
		url = result.Location
	}
	previous := derefString(club.LogoURL)
	if err := s.clubs.UpdateLogo(ctx, club.ID, &url); err != nil {
		return nil, err
	}
	club.LogoURL = &url

	if key := storage.KeyFromURL(s.publicBase, previous); key != "" {
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old logo", slog.String("key", key), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "club logo uploaded", slog.String("club_id", club.ID), slog.String("key", result.Key))
	return club, nil
}
