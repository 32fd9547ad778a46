package product

import "errors"

var ErrNotOwner = errors.New("product belongs to a different store")

type ServiceInterface interface {
	List() []Product
	GetByID(id int) (Product, error)
	ListByStore(storeID int) ([]Product, error)
	Create(p Product) (Product, error)
	Update(id int, storeID int, p Product) (Product, error)
	Delete(id int, storeID int) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() []Product {
	return s.repo.List()
}

func (s *Service) GetByID(id int) (Product, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListByStore(storeID int) ([]Product, error) {
	return s.repo.ListByStore(storeID)
}

func (s *Service) Create(p Product) (Product, error) {
	if err := p.Normalize(); err != nil {
		return Product{}, err
	}
	return s.repo.Create(p)
}

// Update rejects writes against products owned by a different store.
func (s *Service) Update(id int, storeID int, p Product) (Product, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return Product{}, err
	}
	if existing.StoreID != storeID {
		return Product{}, ErrNotOwner
	}

	p.StoreID = existing.StoreID
	p.CreatedAt = existing.CreatedAt
	if err := p.Normalize(); err != nil {
		return Product{}, err
	}
	return s.repo.Update(id, p)
}

func (s *Service) Delete(id int, storeID int) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing.StoreID != storeID {
		return ErrNotOwner
	}
	return s.repo.Delete(id)
}
