package permissions

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/models"
)

// PermissionController manages user permissions and ledger account mapping
type PermissionController struct {
	adminIDs map[string]bool
	mappings map[string]models.UserMapping
	logger   *logrus.Logger
}

// NewController creates a new permission controller
func NewController(adminIDs []int64, mappings []models.UserMapping, logger *logrus.Logger) *PermissionController {
	adminIDMap := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		adminIDMap[strconv.FormatInt(id, 10)] = true
	}

	mappingMap := make(map[string]models.UserMapping, len(mappings))
	for _, m := range mappings {
		mappingMap[m.ChatUserID] = m
	}

	logger.Infof("Initialized permission controller with %d admins and %d mapped users", len(adminIDs), len(mappings))

	return &PermissionController{
		adminIDs: adminIDMap,
		mappings: mappingMap,
		logger:   logger,
	}
}

// Mapping returns the user mapping of a chat user.
// Unmapped users get a mapping without a ledger account.
func (p *PermissionController) Mapping(userID string) models.UserMapping {
	mapping, ok := p.mappings[userID]
	if !ok {
		p.logger.Debugf("User %s has no ledger mapping", userID)
		mapping = models.UserMapping{ChatUserID: userID}
	}
	if p.adminIDs[userID] {
		mapping.IsAdmin = true
	}
	return mapping
}

// LedgerUserID returns the ledger account of a chat user
func (p *PermissionController) LedgerUserID(userID string) (string, bool) {
	mapping := p.Mapping(userID)
	return mapping.LedgerUserID, mapping.HasLedgerAccount()
}
