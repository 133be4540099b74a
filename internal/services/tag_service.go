package services

import (
	"context"

	"task-manager/internal/models"
	"task-manager/internal/repositories"
)

// TagService はTag関連のビジネスロジックを扱います。
type TagService struct {
	tagRepo  *repositories.TagRepository
	userRepo *repositories.UserRepository
}

func NewTagService(tagRepo *repositories.TagRepository, userRepo *repositories.UserRepository) *TagService {
	return &TagService{tagRepo: tagRepo, userRepo: userRepo}
}

// Create は新しいTagを作成します。
func (s *TagService) Create(ctx context.Context, tag *models.Tag, caller Caller) (*models.Tag, error) {
	if tag.ID != 0 {
		return nil, ErrIDExists
	}
	owner, err := resolveOwner(ctx, s.userRepo, tag.User, caller)
	if err != nil {
		return nil, err
	}
	tag.User = owner
	return s.tagRepo.Create(ctx, tag)
}

// Update はTagを置き換えます。所有者は変わりません。
func (s *TagService) Update(ctx context.Context, id int, tag *models.Tag, caller Caller) (*models.Tag, error) {
	existing, err := s.checkUpdate(ctx, id, tag.ID, caller)
	if err != nil {
		return nil, err
	}
	tag.User = existing.User
	return s.tagRepo.Update(ctx, tag)
}

// PartialUpdate は name が null でない場合のみ上書きします。
func (s *TagService) PartialUpdate(ctx context.Context, id int, patch *models.Tag, caller Caller) (*models.Tag, error) {
	existing, err := s.checkUpdate(ctx, id, patch.ID, caller)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		existing.Name = patch.Name
	}
	existing.Tasks = nil
	return s.tagRepo.Update(ctx, existing)
}

func (s *TagService) checkUpdate(ctx context.Context, pathID, bodyID int, caller Caller) (*models.Tag, error) {
	if bodyID == 0 {
		return nil, ErrIDNull
	}
	if bodyID != pathID {
		return nil, ErrIDInvalid
	}
	return s.Get(ctx, pathID, caller)
}

// Get はTagとそのTagが付いたTaskを返します。
func (s *TagService) Get(ctx context.Context, id int, caller Caller) (*models.Tag, error) {
	tag, err := s.tagRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(tag.OwnerID()) {
		return nil, repositories.ErrForbidden
	}
	return tag, nil
}

// List はTagの一覧を返します。adminの場合は全Tag。
func (s *TagService) List(ctx context.Context, p models.Pageable, caller Caller) (*models.Page[models.Tag], error) {
	if caller.IsAdmin() {
		return s.tagRepo.FindAll(ctx, p)
	}
	return s.tagRepo.FindByUserID(ctx, caller.UserID, p)
}

// Delete はTagを削除します。Taskとの関連も外れます。
func (s *TagService) Delete(ctx context.Context, id int, caller Caller) error {
	if _, err := s.Get(ctx, id, caller); err != nil {
		return err
	}
	return s.tagRepo.Delete(ctx, id)
}
