package menu

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	Save(ctx context.Context, item *Item) error
}
