// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import (
	"context"

	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/core/resource"
)

// DirectoryClient defines the secondary port for a CSD directory service.
type DirectoryClient interface {
	// Search looks up one entity by entityID.
	// Returns nil, nil when the directory holds no such entity.
	Search(ctx context.Context, resourceType config.ResourceType, directory, entityID string) (*resource.Resource, error)

	// Update sends a create/update request for the given resource.
	Update(ctx context.Context, resourceType config.ResourceType, directory string, res *resource.Resource) error
}
