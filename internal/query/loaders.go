package query

import (
	"context"
	"fmt"

	"github.com/UkralStul/posts-manager/internal/cache"
	"github.com/UkralStul/posts-manager/internal/gateway"
)

// Loader возвращает загрузчик для ключа кэша поверх шлюза.
func Loader(gw gateway.Gateway, key cache.Key) cache.Loader {
	return func(ctx context.Context) (any, error) {
		switch key.Kind {
		case cache.KindPosts:
			return gw.ListPosts(ctx, key.Skip, key.Limit)
		case cache.KindPostsByTag:
			return gw.ListPostsByTag(ctx, key.Tag)
		case cache.KindSearch:
			return gw.SearchPosts(ctx, key.Query)
		case cache.KindComments:
			return gw.ListComments(ctx, key.PostID)
		case cache.KindTags:
			return gw.ListTags(ctx)
		case cache.KindUserSummaries:
			return gw.ListUserSummaries(ctx)
		default:
			return nil, fmt.Errorf("no loader for key %s", key)
		}
	}
}
