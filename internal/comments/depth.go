package comments

import (
	"context"
	"errors"
)

var ErrDepthLimitExceeded = errors.New("reply depth limit exceeded")

// ParentLookup returns the parent id of postID. found is false when the post does not exist;
// an existing root post returns found with an empty parent.
type ParentLookup func(ctx context.Context, postID string) (parentID string, found bool, err error)

// ValidateReplyDepth walks the ancestors of parentID and returns the depth a new reply
// under it would have. A missing ancestor ends the walk and the shallower depth stands.
func ValidateReplyDepth(ctx context.Context, parentID string, lookup ParentLookup) (int, error) {
	if parentID == "" {
		return 0, nil
	}
	hops := 0
	cur := parentID
	for {
		next, found, err := lookup(ctx, cur)
		if err != nil {
			return 0, err
		}
		if !found || next == "" {
			break
		}
		hops++
		if hops >= MaxDepth {
			return 0, ErrDepthLimitExceeded
		}
		cur = next
	}
	return hops + 1, nil
}
