package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) SaveProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*domain.Product, error) {
	var products []*domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ArchiveProduct(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		false, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertVariant(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Create(variant).Error
}

func (r *repo) DeleteVariant(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM product_variants WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListVariants(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]*domain.Variant, error) {
	var variants []*domain.Variant
	stmt := db.WithContext(ctx).Model(&domain.Variant{})
	if productID != 0 {
		stmt = stmt.Where("product_id = ?", productID)
	}
	if err := stmt.Order("id").Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// DecrementProductStock refuses to drive the counter below zero; callers see
// zero rows affected instead.
func (r *repo) DecrementProductStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock >= ?`,
		qty, id, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DecrementVariantStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE product_variants
		 SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock >= ?`,
		qty, id, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) IncrementProductStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		qty, id,
	).Error
}

func (r *repo) IncrementVariantStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE product_variants
		 SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		qty, id,
	).Error
}

func (r *repo) InsertScent(ctx context.Context, db *gorm.DB, scent *domain.Scent) error {
	return db.WithContext(ctx).Create(scent).Error
}

func (r *repo) ListScents(ctx context.Context, db *gorm.DB) ([]*domain.Scent, error) {
	var scents []*domain.Scent
	if err := db.WithContext(ctx).Order("name").Find(&scents).Error; err != nil {
		return nil, err
	}
	return scents, nil
}

func (r *repo) DeleteScent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM scents WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertWickType(ctx context.Context, db *gorm.DB, wick *domain.WickType) error {
	return db.WithContext(ctx).Create(wick).Error
}

func (r *repo) ListWickTypes(ctx context.Context, db *gorm.DB) ([]*domain.WickType, error) {
	var wicks []*domain.WickType
	if err := db.WithContext(ctx).Order("name").Find(&wicks).Error; err != nil {
		return nil, err
	}
	return wicks, nil
}

func (r *repo) DeleteWickType(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM wick_types WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertContainer(ctx context.Context, db *gorm.DB, container *domain.Container) error {
	return db.WithContext(ctx).Create(container).Error
}

func (r *repo) ListContainers(ctx context.Context, db *gorm.DB) ([]*domain.Container, error) {
	var containers []*domain.Container
	if err := db.WithContext(ctx).Order("name").Find(&containers).Error; err != nil {
		return nil, err
	}
	return containers, nil
}

func (r *repo) DeleteContainer(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM containers WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
