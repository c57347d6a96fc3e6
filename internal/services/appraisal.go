package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/metrics"
	"github.com/evemgr/pricing-core/internal/models"
)

// autoSubscribePlugin is the registry owner used for subscriptions created
// implicitly by appraisal submissions.
const autoSubscribePlugin = "appraisal"

const appraisalIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const appraisalIDLength = 8

// AppraisalOptions carries the caller-controlled knobs for one submission.
type AppraisalOptions struct {
	Market          string
	PricePercentage float64 // applied uniformly to buy and sell unit prices
	UserID          *int64
	IsPrivate       bool
}

// AppraisalService orchestrates the full pipeline: parse, resolve,
// auto-subscribe, scoped refresh, price, persist. One pass, no retries
// across stages.
type AppraisalService struct {
	db       *gorm.DB
	parser   *Parser
	resolver *Resolver
	pricing  *PricingService
	cfg      *config.Config
}

func NewAppraisalService(db *gorm.DB, parser *Parser, resolver *Resolver, pricing *PricingService, cfg *config.Config) *AppraisalService {
	return &AppraisalService{
		db:       db,
		parser:   parser,
		resolver: resolver,
		pricing:  pricing,
		cfg:      cfg,
	}
}

// CreateAppraisal turns raw pasted text into a persisted, valued appraisal.
// Nothing is persisted unless at least one item resolves.
func (s *AppraisalService) CreateAppraisal(ctx context.Context, rawInput string, opts AppraisalOptions) (*models.Appraisal, error) {
	start := time.Now()

	market := opts.Market
	if market == "" {
		market = s.cfg.Pricing.DefaultMarket
	}
	if _, ok := s.cfg.Pricing.Markets[market]; !ok {
		return nil, ErrUnknownMarket
	}

	percentage := opts.PricePercentage
	if percentage <= 0 {
		percentage = s.cfg.Appraisal.DefaultPercentage
	}

	parseResult := s.parser.Parse(rawInput)
	if !parseResult.Success || len(parseResult.Items) == 0 {
		log.Printf("Appraisal: no valid items found in input (%d bytes)", len(rawInput))
		return nil, ErrEmptyInput
	}
	if max := s.cfg.Appraisal.MaxItems; max > 0 && len(parseResult.Items) > max {
		parseResult.Items = parseResult.Items[:max]
	}

	resolveResult := s.resolver.Resolve(parseResult.Items)
	if len(resolveResult.Resolved) == 0 {
		log.Printf("Appraisal: failed to resolve any item names (%d parsed)", len(parseResult.Items))
		return nil, ErrNoResolvableItems
	}

	typeIDs := make([]int32, 0, len(resolveResult.Resolved))
	for _, item := range resolveResult.Resolved {
		typeIDs = append(typeIDs, item.TypeID)
	}

	// Keep these types fresh for future cycles. Not fatal if it fails; the
	// scoped refresh below is what this appraisal actually depends on.
	if _, err := s.pricing.RegisterTypes(autoSubscribePlugin, typeIDs, market, 5); err != nil {
		log.Printf("Appraisal: auto-subscribe failed: %v", err)
	}

	// Synchronous refresh scoped to exactly the items being appraised.
	if err := s.pricing.RefreshTypes(ctx, typeIDs, market); err != nil {
		log.Printf("Appraisal: scoped refresh failed: %v", err)
	}
	s.pricing.InvalidateCache()

	appraisal := &models.Appraisal{
		AppraisalID:     s.generateAppraisalID(),
		UserID:          opts.UserID,
		Market:          market,
		Kind:            parseResult.Strategy,
		RawInput:        rawInput,
		PricePercentage: percentage,
		IsPrivate:       opts.IsPrivate,
		UnparsedLines:   parseResult.Unparsed,
		UnresolvedItems: resolveResult.Unresolved,
	}
	if opts.IsPrivate {
		appraisal.PrivateToken = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if days := s.cfg.Appraisal.RetentionDays; days > 0 {
		expiry := time.Now().AddDate(0, 0, days)
		appraisal.ExpiresAt = &expiry
	}

	if err := s.db.Create(appraisal).Error; err != nil {
		return nil, err
	}

	if err := s.populateItems(appraisal, resolveResult.Resolved); err != nil {
		return nil, err
	}

	metrics.AppraisalsCreatedTotal.Inc()
	metrics.AppraisalDuration.Observe(time.Since(start).Seconds())

	log.Printf("Appraisal: created %s with %d items (market=%s, strategy=%s)",
		appraisal.AppraisalID, len(appraisal.Items), market, parseResult.Strategy)
	return appraisal, nil
}

// populateItems prices each resolved item, writes the line rows, and stores
// the accumulated totals on the header. Totals are always recomputed here,
// never taken from a caller.
func (s *AppraisalService) populateItems(appraisal *models.Appraisal, resolved []ResolvedItem) error {
	var totalBuy, totalSell, totalVolume float64
	errorCount := 0

	prices, err := s.pricing.GetPrices(typeIDsOf(resolved), appraisal.Market, "both")
	if err != nil {
		log.Printf("Appraisal: price read failed for %s: %v", appraisal.AppraisalID, err)
		prices = map[int32]*TypePrice{}
	}

	for _, item := range resolved {
		itemType, err := s.resolver.LookupType(item.TypeID)
		if err != nil {
			// Resolved a moment ago but gone now; count it and move on.
			log.Printf("Appraisal: type %d missing from catalog: %v", item.TypeID, err)
			metrics.AppraisalItemErrors.Inc()
			errorCount++
			continue
		}

		var buyPrice, sellPrice float64
		if price := prices[item.TypeID]; price != nil {
			if price.Buy != nil {
				buyPrice = price.Buy.Max
			}
			if price.Sell != nil {
				sellPrice = price.Sell.Min
			}
		} else {
			log.Printf("Appraisal: no price data for type %d in %s", item.TypeID, appraisal.Market)
		}

		modifier := appraisal.PricePercentage / 100
		buyPrice *= modifier
		sellPrice *= modifier

		quantity := float64(item.Quantity)
		line := models.AppraisalItem{
			AppraisalID: appraisal.ID,
			TypeID:      item.TypeID,
			TypeName:    itemType.TypeName,
			Quantity:    item.Quantity,
			TypeVolume:  itemType.Volume,
			TotalVolume: itemType.Volume * quantity,
			BuyPrice:    buyPrice,
			SellPrice:   sellPrice,
			BuyTotal:    buyPrice * quantity,
			SellTotal:   sellPrice * quantity,
			IsBPC:       item.IsBPC,
		}
		if item.IsBPC {
			line.BPCRuns = 1
		}

		if err := s.db.Create(&line).Error; err != nil {
			log.Printf("Appraisal: failed to create line item for type %d: %v", item.TypeID, err)
			errorCount++
			continue
		}

		appraisal.Items = append(appraisal.Items, line)
		totalBuy += line.BuyTotal
		totalSell += line.SellTotal
		totalVolume += line.TotalVolume
	}

	if errorCount > 0 {
		log.Printf("Appraisal: %s completed with %d item errors", appraisal.AppraisalID, errorCount)
	}

	appraisal.TotalBuy = totalBuy
	appraisal.TotalSell = totalSell
	appraisal.TotalVolume = totalVolume

	return s.db.Model(appraisal).Updates(map[string]any{
		"total_buy":    totalBuy,
		"total_sell":   totalSell,
		"total_volume": totalVolume,
	}).Error
}

// GetAppraisal fetches an appraisal by public id. A private appraisal with a
// wrong or missing token behaves exactly like a missing one.
func (s *AppraisalService) GetAppraisal(appraisalID, token string) (*models.Appraisal, error) {
	var appraisal models.Appraisal
	err := s.db.Preload("Items").Where("appraisal_id = ?", appraisalID).First(&appraisal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if appraisal.IsPrivate && appraisal.PrivateToken != token {
		return nil, ErrNotFound
	}

	return &appraisal, nil
}

// ListRecent returns a user's most recent appraisals, newest first.
func (s *AppraisalService) ListRecent(userID int64, limit int) ([]models.Appraisal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var appraisals []models.Appraisal
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&appraisals).Error
	return appraisals, err
}

// DeleteAppraisal removes an appraisal and its line items. Only the owner or
// a privileged requester may delete.
func (s *AppraisalService) DeleteAppraisal(appraisalID string, requesterID *int64, privileged bool) error {
	var appraisal models.Appraisal
	err := s.db.Where("appraisal_id = ?", appraisalID).First(&appraisal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	isOwner := appraisal.UserID != nil && requesterID != nil && *appraisal.UserID == *requesterID
	if !isOwner && !privileged {
		return ErrForbidden
	}

	return s.deleteWithItems([]uint{appraisal.ID})
}

// DeleteExpired sweeps appraisals whose retention window has passed,
// cascading to their line items. Appraisals without an expiry are kept.
func (s *AppraisalService) DeleteExpired() (int64, error) {
	var ids []uint
	err := s.db.Model(&models.Appraisal{}).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.deleteWithItems(ids); err != nil {
		return 0, err
	}

	metrics.AppraisalsExpiredTotal.Add(float64(len(ids)))
	log.Printf("Appraisal: deleted %d expired appraisals", len(ids))
	return int64(len(ids)), nil
}

func (s *AppraisalService) deleteWithItems(ids []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("appraisal_id IN ?", ids).Delete(&models.AppraisalItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Appraisal{}).Error
	})
}

// generateAppraisalID produces a short public id, retrying on the unlikely
// collision with an existing row.
func (s *AppraisalService) generateAppraisalID() string {
	for {
		id := randomString(appraisalIDLength)

		var count int64
		s.db.Model(&models.Appraisal{}).Where("appraisal_id = ?", id).Count(&count)
		if count == 0 {
			return id
		}
	}
}

func randomString(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(appraisalIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a uuid fragment rather than panicking.
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
		}
		b[i] = appraisalIDAlphabet[n.Int64()]
	}
	return string(b)
}

func typeIDsOf(resolved []ResolvedItem) []int32 {
	ids := make([]int32, 0, len(resolved))
	for _, item := range resolved {
		ids = append(ids, item.TypeID)
	}
	return ids
}
