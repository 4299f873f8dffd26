package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// conflictMessage deliberately does not say which field collided.
const conflictMessage = "username or email already taken"

// UserService owns the user directory and the credential store.
type UserService struct {
	userRepo *repository.UserRepository
	producer *queue.KafkaProducer
	logger   *logger.Logger
}

func NewUserService(userRepo *repository.UserRepository, producer *queue.KafkaProducer, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		producer: producer,
		logger:   logger,
	}
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=1,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=50"`
	ImageURL string `json:"image_url"`
	Location string `json:"location"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries profile edits. CurrentPassword must match the
// stored credential before any attribute changes.
type UpdateProfileRequest struct {
	CurrentPassword string  `json:"current_password" binding:"required"`
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	ImageURL        *string `json:"image_url"`
	HeaderImageURL  *string `json:"header_image_url"`
	Bio             *string `json:"bio"`
	Location        *string `json:"location"`
}

func (s *UserService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, models.NewConflictError(conflictMessage)
	}

	existing, err = s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, models.NewConflictError(conflictMessage)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		ImageURL: req.ImageURL,
		Location: req.Location,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent signup can lose the race after the prechecks;
		// the unique index reports it as a duplicate key.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError(conflictMessage)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publish(ctx, user.ID.String(), queue.EventUserCreated, queue.UserEventData{
		UserID:   user.ID.String(),
		Username: user.Username,
	})

	s.logger.WithField("user_id", user.ID).Info("User signed up")
	return user, nil
}

// Authenticate finds the user with the given username whose password hash
// matches. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *UserService) Authenticate(ctx context.Context, req *LoginRequest) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &models.AppError{Kind: models.KindUnauthenticated, Message: "invalid username or password"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, &models.AppError{Kind: models.KindUnauthenticated, Message: "invalid username or password"}
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	userUUID, err := parseActorID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", userID)
	}
	return user, nil
}

// UpdateProfile applies profile edits after re-verifying the current
// password. A failed verification changes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, actorID string, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return nil, &models.AppError{Kind: models.KindUnauthenticated, Message: "password verification failed"}
	}

	if req.Username != nil && *req.Username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, *req.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if existing != nil {
			return nil, models.NewConflictError(conflictMessage)
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		existing, err := s.userRepo.GetByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			return nil, models.NewConflictError(conflictMessage)
		}
		user.Email = *req.Email
	}
	if req.ImageURL != nil {
		user.ImageURL = *req.ImageURL
	}
	if req.HeaderImageURL != nil {
		user.HeaderImageURL = *req.HeaderImageURL
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Location != nil {
		user.Location = *req.Location
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError(conflictMessage)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.publish(ctx, actorID, queue.EventUserUpdated, queue.UserEventData{
		UserID:   actorID,
		Username: user.Username,
	})

	s.logger.WithField("user_id", actorID).Info("Profile updated")
	return user, nil
}

// DeleteAccount removes the actor's account; messages, likes, and follow
// edges in both directions go with it.
func (s *UserService) DeleteAccount(ctx context.Context, actorID string) error {
	user, err := s.GetByID(ctx, actorID)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.publish(ctx, actorID, queue.EventUserDeleted, queue.UserEventData{
		UserID:   actorID,
		Username: user.Username,
	})

	s.logger.WithField("user_id", actorID).Info("Account deleted")
	return nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Search(ctx context.Context, query string, offset, limit int) ([]*models.User, error) {
	users, err := s.userRepo.Search(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func (s *UserService) publish(ctx context.Context, key string, eventType queue.EventType, data interface{}) {
	if s.producer == nil {
		return
	}

	event, err := queue.NewEvent(eventType, data)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build event")
		return
	}
	if err := s.producer.Publish(ctx, key, event); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}
