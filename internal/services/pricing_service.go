package services

import (
	"context"
	"errors"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"
)

// SurgeSignals is a point-in-time snapshot of the live inputs to the surge
// computation. Quotes are pure functions of the rule, the request and one
// snapshot, so the same snapshot always reproduces the same breakdown.
type SurgeSignals struct {
	At             time.Time `json:"at"`
	OnlineDrivers  int64     `json:"online_drivers"`
	ActiveBookings int64     `json:"active_bookings"`
	Weather        string    `json:"weather"`
}

type QuoteRequest struct {
	DistanceKM  float64          `json:"distance_km"`
	CargoSize   models.CargoSize `json:"cargo_size"`
	VehicleType string           `json:"vehicle_type"`
	Express     bool             `json:"express"`
	Fragile     bool             `json:"fragile"`
	Insurance   bool             `json:"insurance"`
	PromoCode   string           `json:"promo_code"`
}

type PricingService interface {
	// Quote snapshots the live signals and computes a full fare breakdown.
	Quote(ctx context.Context, req *QuoteRequest) (*models.FareBreakdown, error)

	// QuoteWithSignals computes a breakdown from an explicit snapshot.
	QuoteWithSignals(ctx context.Context, req *QuoteRequest, signals *SurgeSignals) (*models.FareBreakdown, error)

	CollectSignals(ctx context.Context) *SurgeSignals
}

var nonTerminalStatuses = []models.BookingStatus{
	models.BookingStatusPending,
	models.BookingStatusDriverAssigned,
	models.BookingStatusDriverArrived,
	models.BookingStatusPickedUp,
	models.BookingStatusInTransit,
	models.BookingStatusReachedDestination,
	models.BookingStatusDelivered,
}

type pricingService struct {
	ruleRepo    interfaces.PricingRuleRepository
	promoRepo   interfaces.PromotionRepository
	driverRepo  interfaces.DriverRepository
	bookingRepo interfaces.BookingRepository
	cache       CacheService
	logger      *logger.Logger
}

func NewPricingService(
	ruleRepo interfaces.PricingRuleRepository,
	promoRepo interfaces.PromotionRepository,
	driverRepo interfaces.DriverRepository,
	bookingRepo interfaces.BookingRepository,
	cache CacheService,
	log *logger.Logger,
) PricingService {
	return &pricingService{
		ruleRepo:    ruleRepo,
		promoRepo:   promoRepo,
		driverRepo:  driverRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		logger:      log,
	}
}

func (s *pricingService) Quote(ctx context.Context, req *QuoteRequest) (*models.FareBreakdown, error) {
	return s.QuoteWithSignals(ctx, req, s.CollectSignals(ctx))
}

func (s *pricingService) QuoteWithSignals(ctx context.Context, req *QuoteRequest, signals *SurgeSignals) (*models.FareBreakdown, error) {
	if req.DistanceKM < 0 {
		return nil, NewValidationError("distance_km", "must not be negative")
	}
	if req.DistanceKM > utils.MaxTripDistanceKM {
		return nil, NewValidationError("distance_km", "exceeds maximum trip distance")
	}

	rule, err := s.resolveRule(ctx, req.VehicleType, signals.At)
	if err != nil {
		return nil, err
	}

	var promo *models.Promotion
	if req.PromoCode != "" {
		promo, err = s.promoRepo.GetByCode(ctx, req.PromoCode)
		if err != nil && !errors.Is(err, ErrPromotionNotFound) {
			return nil, err
		}
	}

	breakdown := computeQuote(rule, promo, req, signals)

	s.logger.LogPricingEvent(req.VehicleType, breakdown.Total, breakdown.SurgeMultiplier)

	return breakdown, nil
}

// CollectSignals gathers the surge inputs, degrading to neutral values when a
// signal source is unavailable rather than failing the quote.
func (s *pricingService) CollectSignals(ctx context.Context) *SurgeSignals {
	signals := &SurgeSignals{At: time.Now()}

	if count, err := s.driverRepo.CountOnlineApproved(ctx); err == nil {
		signals.OnlineDrivers = count
	} else {
		s.logger.WithError(err).Warn("Supply signal unavailable")
		signals.OnlineDrivers = -1
	}

	if count, err := s.bookingRepo.CountByStatus(ctx, nonTerminalStatuses...); err == nil {
		signals.ActiveBookings = count
	} else {
		s.logger.WithError(err).Warn("Demand signal unavailable")
		signals.ActiveBookings = -1
	}

	if s.cache != nil {
		var weather string
		if err := s.cache.Get(ctx, utils.WeatherSignalKey, &weather); err == nil {
			signals.Weather = weather
		}
	}

	return signals
}

func (s *pricingService) resolveRule(ctx context.Context, vehicleType string, at time.Time) (*models.PricingRule, error) {
	if vehicleType == "" {
		vehicleType = "all"
	}

	rule, err := s.ruleRepo.GetActiveForVehicleType(ctx, vehicleType, at)
	if err == nil {
		return rule, nil
	}
	if !errors.Is(err, ErrPricingRuleNotFound) {
		return nil, err
	}

	// No active rule yet. Synthesize the documented defaults and persist
	// them so later quotes and audits see the same configuration.
	rule = DefaultPricingRule()
	if createErr := s.ruleRepo.Create(ctx, rule); createErr != nil {
		s.logger.WithError(createErr).Warn("Failed to persist default pricing rule")
	}

	return rule, nil
}

// DefaultPricingRule is the configuration used when pricing administration
// has not created any rule.
func DefaultPricingRule() *models.PricingRule {
	return &models.PricingRule{
		VehicleType: "all",
		BaseFare:    50,
		PerKMRate:   12,
		CargoMultipliers: map[models.CargoSize]float64{
			models.CargoSizeXS: 1.0,
			models.CargoSizeS:  1.2,
			models.CargoSizeM:  1.5,
			models.CargoSizeL:  2.0,
			models.CargoSizeXL: 2.5,
		},
		PeakWindows: []models.PeakWindow{
			{Start: "08:00", End: "11:00", Multiplier: 1.3},
			{Start: "17:00", End: "21:00", Multiplier: 1.3},
		},
		LowSupplyThreshold:   5,
		LowSupplyMultiplier:  1.5,
		HighDemandThreshold:  50,
		HighDemandMultiplier: 1.4,
		WeatherMultipliers: map[string]float64{
			"rain":  1.2,
			"storm": 1.5,
		},
		ExpressCharge:      50,
		FragileCharge:      30,
		InsurancePercent:   2,
		MinimumFare:        100,
		DriverSharePercent: utils.DriverSharePercent,
		Currency:           utils.DefaultCurrency,
		IsActive:           true,
		EffectiveFrom:      time.Now(),
	}
}

// computeQuote applies the fare algorithm step by step. Floats stay unrounded
// until the single round at the end.
func computeQuote(rule *models.PricingRule, promo *models.Promotion, req *QuoteRequest, signals *SurgeSignals) *models.FareBreakdown {
	distanceFare := req.DistanceKM * rule.PerKMRate
	cargoMultiplier := rule.CargoMultiplier(req.CargoSize)
	surge := surgeMultiplier(rule, signals)

	subtotal := (rule.BaseFare + distanceFare) * cargoMultiplier * surge

	addOns := models.AddOnCharges{}
	if req.Express {
		addOns.Express = rule.ExpressCharge
	}
	if req.Fragile {
		addOns.Fragile = rule.FragileCharge
	}
	subtotal += addOns.Express + addOns.Fragile

	// Insurance is percentage-based, so it comes after every flat charge.
	if req.Insurance && rule.InsurancePercent > 0 {
		addOns.Insurance = subtotal * rule.InsurancePercent / 100
		subtotal += addOns.Insurance
	}

	if subtotal < rule.MinimumFare {
		subtotal = rule.MinimumFare
	}
	// A zero maximum means the rule sets no cap.
	if rule.MaximumFare > 0 && subtotal > rule.MaximumFare {
		subtotal = rule.MaximumFare
	}

	var discount float64
	if promo != nil {
		discount = promo.DiscountFor(subtotal, signals.At)
	}

	total := utils.RoundFare(subtotal - discount)
	if total < 0 {
		total = 0
	}

	currency := rule.Currency
	if currency == "" {
		currency = utils.DefaultCurrency
	}

	return &models.FareBreakdown{
		BaseFare:        rule.BaseFare,
		DistanceFare:    distanceFare,
		CargoMultiplier: cargoMultiplier,
		SurgeMultiplier: surge,
		AddOns:          addOns,
		Discount:        discount,
		Total:           total,
		Currency:        currency,
	}
}

// surgeMultiplier takes the maximum across the independent signals, each one
// contributing only when its condition holds, clamped to [1.0, 2.5].
func surgeMultiplier(rule *models.PricingRule, signals *SurgeSignals) float64 {
	surge := utils.MinSurgeMultiplier

	for _, window := range rule.PeakWindows {
		if window.Contains(signals.At) && window.Multiplier > surge {
			surge = window.Multiplier
		}
	}

	if signals.OnlineDrivers >= 0 && rule.LowSupplyThreshold > 0 &&
		signals.OnlineDrivers < rule.LowSupplyThreshold && rule.LowSupplyMultiplier > surge {
		surge = rule.LowSupplyMultiplier
	}

	if signals.ActiveBookings >= 0 && rule.HighDemandThreshold > 0 &&
		signals.ActiveBookings > rule.HighDemandThreshold && rule.HighDemandMultiplier > surge {
		surge = rule.HighDemandMultiplier
	}

	if signals.Weather != "" {
		if m, ok := rule.WeatherMultipliers[signals.Weather]; ok && m > surge {
			surge = m
		}
	}

	if surge < utils.MinSurgeMultiplier {
		surge = utils.MinSurgeMultiplier
	}
	if surge > utils.MaxSurgeMultiplier {
		surge = utils.MaxSurgeMultiplier
	}

	return surge
}
