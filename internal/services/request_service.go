package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
	"github.com/Maneldor/la-publica-new-sub022/pkg/logger"
	"github.com/Maneldor/la-publica-new-sub022/pkg/metrics"
)

// DefaultRequestTTL is how long a request stays actionable before it expires.
const DefaultRequestTTL = 30 * 24 * time.Hour

// RequestAction is a reviewer's decision on a pending request.
type RequestAction string

const (
	ActionApprove RequestAction = "approve"
	ActionReject  RequestAction = "reject"
)

// ListRequestsInput defines the filters accepted when querying requests.
type ListRequestsInput struct {
	UserID  string
	GroupID string
	Kind    models.RequestKind
	Status  models.RequestStatus

	Page     int
	PageSize int
}

// RequestOption customises RequestService behaviour.
type RequestOption func(*RequestService)

// WithRequestClock injects a custom clock primarily for testing.
func WithRequestClock(clock func() time.Time) RequestOption {
	return func(s *RequestService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithRequestTTL overrides the default pending-request lifetime.
func WithRequestTTL(ttl time.Duration) RequestOption {
	return func(s *RequestService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// RequestService drives the shared pending/approved/rejected/cancelled/expired
// lifecycle behind connection requests, group join requests, and invitations.
// Every terminal transition runs in a single transaction together with its
// side effects and audit row; an expired request is flipped before any other
// action gets to look at it.
type RequestService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier *NotificationService
	log      *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewRequestService constructs a RequestService.
func NewRequestService(db *gorm.DB, audit *AuditService, notifier *NotificationService, opts ...RequestOption) (*RequestService, error) {
	if db == nil {
		return nil, errors.New("request service: db is required")
	}
	if audit == nil {
		return nil, errors.New("request service: audit service is required")
	}

	service := &RequestService{
		db:       db,
		audit:    audit,
		notifier: notifier,
		log:      logger.WithModule("requests"),
		ttl:      DefaultRequestTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateConnectionRequest opens a connection request from one user to another.
// At most one pending request may exist per user pair, in either direction.
func (s *RequestService) CreateConnectionRequest(ctx context.Context, requesterID, targetID, message string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	requesterID = strings.TrimSpace(requesterID)
	targetID = strings.TrimSpace(targetID)
	if requesterID == "" || targetID == "" {
		return nil, apperrors.NewValidation("requester and target are required")
	}
	if requesterID == targetID {
		return nil, apperrors.NewValidation("cannot request a connection with yourself")
	}

	request := &models.Request{
		Kind:         models.RequestConnection,
		RequesterID:  requesterID,
		TargetUserID: &targetID,
		Message:      strings.TrimSpace(message),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, requesterID); err != nil {
			return err
		}
		if err := requireUser(tx, targetID); err != nil {
			return err
		}

		a, b := models.CanonicalPair(requesterID, targetID)
		var connected int64
		if err := tx.Model(&models.UserConnection{}).
			Where("user_id = ? AND peer_id = ?", a, b).
			Count(&connected).Error; err != nil {
			return fmt.Errorf("request: check connection: %w", err)
		}
		if connected > 0 {
			return apperrors.NewConflict("users are already connected")
		}

		return s.insertPending(tx, ctx, request)
	})
	if err != nil {
		return nil, err
	}

	metrics.Requests.WithLabelValues(string(request.Kind), "created").Inc()
	s.notifyRequest(ctx, targetID, "request.received", "New connection request",
		"Someone wants to connect with you.", request)
	return request, nil
}

// CreateJoinRequest opens a request to join a group.
func (s *RequestService) CreateJoinRequest(ctx context.Context, requesterID, groupID, message string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	requesterID = strings.TrimSpace(requesterID)
	groupID = strings.TrimSpace(groupID)
	if requesterID == "" || groupID == "" {
		return nil, apperrors.NewValidation("requester and group are required")
	}

	request := &models.Request{
		Kind:        models.RequestGroupJoin,
		RequesterID: requesterID,
		GroupID:     &groupID,
		Message:     strings.TrimSpace(message),
	}

	var group models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, requesterID); err != nil {
			return err
		}
		if err := loadGroup(tx, groupID, &group); err != nil {
			return err
		}
		if err := requireNotMember(tx, groupID, requesterID); err != nil {
			return err
		}

		return s.insertPending(tx, ctx, request)
	})
	if err != nil {
		return nil, err
	}

	metrics.Requests.WithLabelValues(string(request.Kind), "created").Inc()
	s.notifyRequest(ctx, group.CreatedBy, "request.received", "New join request",
		fmt.Sprintf("Someone asked to join %s.", group.Name), request)
	return request, nil
}

// CreateInvitation invites a user into a group. The inviter must already be
// a member of the group.
func (s *RequestService) CreateInvitation(ctx context.Context, inviterID, groupID, targetID, message string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	inviterID = strings.TrimSpace(inviterID)
	groupID = strings.TrimSpace(groupID)
	targetID = strings.TrimSpace(targetID)
	if inviterID == "" || groupID == "" || targetID == "" {
		return nil, apperrors.NewValidation("inviter, group, and target are required")
	}
	if inviterID == targetID {
		return nil, apperrors.NewValidation("cannot invite yourself")
	}

	request := &models.Request{
		Kind:         models.RequestGroupInvite,
		RequesterID:  inviterID,
		GroupID:      &groupID,
		TargetUserID: &targetID,
		Message:      strings.TrimSpace(message),
	}

	var group models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, targetID); err != nil {
			return err
		}
		if err := loadGroup(tx, groupID, &group); err != nil {
			return err
		}

		var member int64
		if err := tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ?", groupID, inviterID).
			Count(&member).Error; err != nil {
			return fmt.Errorf("request: check inviter membership: %w", err)
		}
		if member == 0 {
			return apperrors.ErrForbidden.WithMessage("only group members can invite")
		}

		if err := requireNotMember(tx, groupID, targetID); err != nil {
			return err
		}

		return s.insertPending(tx, ctx, request)
	})
	if err != nil {
		return nil, err
	}

	metrics.Requests.WithLabelValues(string(request.Kind), "created").Inc()
	s.notifyRequest(ctx, targetID, "request.received", "Group invitation",
		fmt.Sprintf("You were invited to join %s.", group.Name), request)
	return request, nil
}

// Get returns a request, first flipping it to EXPIRED if its deadline passed.
func (s *RequestService) Get(ctx context.Context, requestID string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	if err := s.expireLazily(ctx, requestID); err != nil {
		return nil, err
	}

	var request models.Request
	err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("request", requestID)
		}
		return nil, fmt.Errorf("request: load %s: %w", requestID, err)
	}
	return &request, nil
}

// List returns requests involving a user or a group.
func (s *RequestService) List(ctx context.Context, input ListRequestsInput) ([]models.Request, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Request{})
	if id := strings.TrimSpace(input.UserID); id != "" {
		query = query.Where("requester_id = ? OR target_user_id = ?", id, id)
	}
	if id := strings.TrimSpace(input.GroupID); id != "" {
		query = query.Where("group_id = ?", id)
	}
	if input.Kind != "" {
		query = query.Where("kind = ?", input.Kind)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("request: count: %w", err)
	}

	page, pageSize := normalisePage(input.Page, input.PageSize)
	var requests []models.Request
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("request: list: %w", err)
	}
	return requests, total, nil
}

// Resolve applies a reviewer's decision. Approval is a saga: the status flip,
// the membership or connection row, the privacy cascade, and the audit entry
// all commit together or not at all.
func (s *RequestService) Resolve(ctx context.Context, requestID string, action RequestAction, reviewerID, note string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	if action != ActionApprove && action != ActionReject {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown action %q", action))
	}
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, apperrors.NewValidation("reviewer is required")
	}

	// Expiry is checked in its own transaction so the EXPIRED flip survives
	// even though the resolution itself is refused.
	if err := s.expireLazily(ctx, requestID); err != nil {
		return nil, err
	}

	var resolved *models.Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestPending {
			if request.Status == models.RequestExpired {
				return apperrors.NewConflict(fmt.Sprintf("request %s expired", requestID))
			}
			return apperrors.NewConflict(fmt.Sprintf("request %s is already %s", requestID, request.Status))
		}

		target := models.RequestApproved
		auditAction := "request.approve"
		if action == ActionReject {
			target = models.RequestRejected
			auditAction = "request.reject"
		}

		if err := s.flipTerminal(tx, request, target, reviewerID, note); err != nil {
			return err
		}

		if action == ActionApprove {
			if err := s.applyApproval(tx, request); err != nil {
				return err
			}
		}

		entry := AuditEntry{
			ActorID:    &reviewerID,
			Action:     auditAction,
			EntityType: "request",
			EntityID:   request.ID,
			Result:     "success",
			Metadata: map[string]any{
				"kind": request.Kind,
			},
		}
		if err := s.audit.LogTx(tx, ctx, entry); err != nil {
			return fmt.Errorf("request: audit %s: %w", requestID, err)
		}

		resolved = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Requests.WithLabelValues(string(resolved.Kind), string(action)).Inc()
	s.notifyResolution(ctx, resolved, action)
	return resolved, nil
}

// Cancel withdraws a pending request. Only its requester may cancel it.
func (s *RequestService) Cancel(ctx context.Context, requestID, actorID string) (*models.Request, error) {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperrors.NewValidation("actor is required")
	}

	if err := s.expireLazily(ctx, requestID); err != nil {
		return nil, err
	}

	var cancelled *models.Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := lockRequest(tx, requestID)
		if err != nil {
			return err
		}
		if request.RequesterID != actorID {
			return apperrors.ErrForbidden.WithMessage("only the requester can cancel a request")
		}
		if request.Status != models.RequestPending {
			return apperrors.NewConflict(fmt.Sprintf("request %s is already %s", requestID, request.Status))
		}

		if err := s.flipTerminal(tx, request, models.RequestCancelled, actorID, ""); err != nil {
			return err
		}

		entry := AuditEntry{
			ActorID:    &actorID,
			Action:     "request.cancel",
			EntityType: "request",
			EntityID:   request.ID,
			Result:     "success",
			Metadata: map[string]any{
				"kind": request.Kind,
			},
		}
		if err := s.audit.LogTx(tx, ctx, entry); err != nil {
			return fmt.Errorf("request: audit %s: %w", requestID, err)
		}
		cancelled = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Requests.WithLabelValues(string(cancelled.Kind), "cancelled").Inc()
	return cancelled, nil
}

// ExpireStale flips every pending request whose deadline has passed. It backs
// the periodic sweep; lazy expiry still covers requests the sweep has not
// reached yet.
func (s *RequestService) ExpireStale(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	result := s.db.WithContext(ctx).Model(&models.Request{}).
		Where("status = ?", models.RequestPending).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Updates(map[string]any{
			"status":      models.RequestExpired,
			"pending_key": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("request: expire stale: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.PendingExpirations.WithLabelValues("sweep").Add(float64(result.RowsAffected))
		s.log.Info("expired stale requests", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// expireLazily flips a single pending request to EXPIRED when its deadline
// has passed. It runs in its own transaction so the flip commits even when
// the caller's operation subsequently fails.
func (s *RequestService) expireLazily(ctx context.Context, requestID string) error {
	now := s.now()

	result := s.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND status = ?", requestID, models.RequestPending).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Updates(map[string]any{
			"status":      models.RequestExpired,
			"pending_key": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("request: lazy expiry %s: %w", requestID, result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.PendingExpirations.WithLabelValues("lazy").Inc()
	}
	return nil
}

// insertPending writes a new pending request plus its creation audit row.
// The unique index on the pending key turns a concurrent duplicate into
// ErrDuplicateRequest.
func (s *RequestService) insertPending(tx *gorm.DB, ctx context.Context, request *models.Request) error {
	request.Status = models.RequestPending

	key := request.PairKey()
	if key == "" {
		return apperrors.NewValidation("request is missing its target")
	}
	request.PendingKey = &key

	expires := s.now().Add(s.ttl)
	request.ExpiresAt = &expires

	if err := tx.Create(request).Error; err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.ErrDuplicateRequest
		}
		return fmt.Errorf("request: create: %w", err)
	}

	entry := AuditEntry{
		ActorID:    &request.RequesterID,
		Action:     "request.create",
		EntityType: "request",
		EntityID:   request.ID,
		Result:     "success",
		Metadata: map[string]any{
			"kind": request.Kind,
		},
	}
	if err := s.audit.LogTx(tx, ctx, entry); err != nil {
		return fmt.Errorf("request: audit create: %w", err)
	}
	return nil
}

// flipTerminal moves a pending request into a terminal state, recording the
// reviewer and releasing the pending key so a future request for the same
// pair can exist.
func (s *RequestService) flipTerminal(tx *gorm.DB, request *models.Request, status models.RequestStatus, reviewerID, note string) error {
	now := s.now()

	updates := map[string]any{
		"status":      status,
		"pending_key": nil,
		"reviewed_by": reviewerID,
		"review_note": strings.TrimSpace(note),
		"reviewed_at": now,
	}
	if err := tx.Model(&models.Request{}).Where("id = ?", request.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("request: flip %s to %s: %w", request.ID, status, err)
	}

	request.Status = status
	request.PendingKey = nil
	request.ReviewedBy = &reviewerID
	request.ReviewNote = strings.TrimSpace(note)
	request.ReviewedAt = &now
	return nil
}

// applyApproval creates the record an approval stands for: a connection row
// for connection requests, a membership for join requests and invitations.
// Memberships inherit the forced privacy flags of the group's category.
func (s *RequestService) applyApproval(tx *gorm.DB, request *models.Request) error {
	switch request.Kind {
	case models.RequestConnection:
		a, b := models.CanonicalPair(request.RequesterID, *request.TargetUserID)
		connection := &models.UserConnection{UserID: a, PeerID: b, RequestID: &request.ID}
		if err := tx.Create(connection).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("users are already connected")
			}
			return fmt.Errorf("request: create connection: %w", err)
		}
		return nil

	case models.RequestGroupJoin:
		return s.createMembership(tx, *request.GroupID, request.RequesterID)

	case models.RequestGroupInvite:
		return s.createMembership(tx, *request.GroupID, *request.TargetUserID)
	}
	return apperrors.NewValidation(fmt.Sprintf("unknown request kind %q", request.Kind))
}

func (s *RequestService) createMembership(tx *gorm.DB, groupID, userID string) error {
	var group models.Group
	if err := tx.Preload("Category").First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("group", groupID)
		}
		return fmt.Errorf("request: load group %s: %w", groupID, err)
	}

	membership := &models.GroupMembership{
		GroupID: groupID,
		UserID:  userID,
		Role:    models.MembershipMember,
	}
	if group.Category != nil {
		membership.HideEmail = group.Category.ForceHideEmail
		membership.HidePhone = group.Category.ForceHidePhone
		membership.HideEmployer = group.Category.ForceHideEmployer
	}

	if err := tx.Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.NewConflict("user is already a member of the group")
		}
		return fmt.Errorf("request: create membership: %w", err)
	}
	return nil
}

func (s *RequestService) notifyRequest(ctx context.Context, userID, kind, title, message string, request *models.Request) {
	if s.notifier == nil || strings.TrimSpace(userID) == "" {
		return
	}
	s.notifier.Notify(ctx, CreateNotificationInput{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Metadata: map[string]any{
			"request_id": request.ID,
			"kind":       request.Kind,
		},
	})
}

func (s *RequestService) notifyResolution(ctx context.Context, request *models.Request, action RequestAction) {
	if s.notifier == nil {
		return
	}

	title, message := "Request approved", "Your request was approved."
	if action == ActionReject {
		title, message = "Request rejected", "Your request was rejected."
	}
	s.notifyRequest(ctx, request.RequesterID, "request.resolved", title, message, request)

	// An approved invitation also lands the invitee in the group.
	if request.Kind == models.RequestGroupInvite && action == ActionApprove && request.TargetUserID != nil {
		s.notifyRequest(ctx, *request.TargetUserID, "request.resolved",
			"Invitation accepted", "You are now a member of the group.", request)
	}
}

func lockRequest(tx *gorm.DB, requestID string) (*models.Request, error) {
	var request models.Request
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("request", requestID)
		}
		return nil, fmt.Errorf("request: load %s: %w", requestID, err)
	}
	return &request, nil
}

func requireUser(tx *gorm.DB, userID string) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("user", userID)
		}
		return fmt.Errorf("request: load user %s: %w", userID, err)
	}
	return nil
}

func loadGroup(tx *gorm.DB, groupID string, out *models.Group) error {
	if err := tx.First(out, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("group", groupID)
		}
		return fmt.Errorf("request: load group %s: %w", groupID, err)
	}
	return nil
}

func requireNotMember(tx *gorm.DB, groupID, userID string) error {
	var count int64
	if err := tx.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("request: check membership: %w", err)
	}
	if count > 0 {
		return apperrors.NewConflict("user is already a member of the group")
	}
	return nil
}
