package store

import "errors"

type ServiceInterface interface {
	GetByID(id int) (Store, error)
	GetByOwner(ownerID int) (Store, error)
	Create(st Store) (Store, error)
	Update(id int, st Store) (Store, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(id int) (Store, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetByOwner(ownerID int) (Store, error) {
	return s.repo.GetByOwner(ownerID)
}

func (s *Service) Create(st Store) (Store, error) {
	if st.Name == "" {
		return Store{}, errors.New("store name is required")
	}
	if st.OwnerID <= 0 {
		return Store{}, errors.New("invalid owner")
	}
	return s.repo.Create(st)
}

func (s *Service) Update(id int, st Store) (Store, error) {
	if st.Name == "" {
		return Store{}, errors.New("store name is required")
	}
	return s.repo.Update(id, st)
}
