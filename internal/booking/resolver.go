package booking

import (
	"context"
	"fmt"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// Outcome classifies how a purchase request was resolved.
type Outcome string

const (
	// OutcomeAdded means tickets went into the cart and a checkout link is ready.
	OutcomeAdded Outcome = "added"
	// OutcomeBlackout means the requested date is a closure date.
	OutcomeBlackout Outcome = "blackout"
	// OutcomeNeedsDate means no usable date was found in the message.
	OutcomeNeedsDate Outcome = "needs_date"
	// OutcomeCalendar means the visitor is sent to the online calendar,
	// either because the request was too complex or the cart failed.
	OutcomeCalendar Outcome = "calendar"
)

// Resolution is the visitor-facing result of a purchase request.
type Resolution struct {
	Outcome     Outcome
	Reply       string
	CheckoutURL string
	Date        *Date
	Quantity    int
}

// maxAutoCartQuantity caps how many tickets the assistant adds unattended.
// Larger groups go through the calendar where variants can be mixed.
const maxAutoCartQuantity = 4

// Resolver turns parsed purchase intent into a cart operation or a guided
// answer.
type Resolver struct {
	cart        *CartClient
	seasonYear  int
	calendarURL string
	log         logger.Logger
}

// NewResolver creates a resolver around the cart client.
func NewResolver(cart *CartClient, cfg config.CartConfig, log logger.Logger) *Resolver {
	return &Resolver{
		cart:        cart,
		seasonYear:  cfg.SeasonYear,
		calendarURL: cfg.CalendarURL,
		log:         log,
	}
}

// Resolve handles a message that already passed Detect. Cart failures never
// surface raw errors; the visitor is pointed at the calendar instead.
func (r *Resolver) Resolve(ctx context.Context, sessionID, message string) Resolution {
	intent := Parse(message, r.seasonYear)

	if len(intent.Dates) == 0 {
		return Resolution{
			Outcome: OutcomeNeedsDate,
			Reply:   "Per quale data vorresti i biglietti? Dimmi giorno e mese, ad esempio \"20 dicembre\".",
		}
	}

	for _, d := range intent.Dates {
		if IsBlackout(d) {
			d := d
			return Resolution{
				Outcome: OutcomeBlackout,
				Date:    &d,
				Reply: fmt.Sprintf(
					"Il %d %s le Lucine restano chiuse. Siamo aperti tutte le altre sere: vuoi scegliere un'altra data?",
					d.Day, monthLabels[d.Month],
				),
			}
		}
	}

	quantity := intent.Quantity
	if quantity == 0 {
		quantity = 1
	}

	if len(intent.Dates) > 1 || quantity > maxAutoCartQuantity {
		return Resolution{
			Outcome:  OutcomeCalendar,
			Quantity: quantity,
			Reply: fmt.Sprintf(
				"Per questo acquisto ti conviene usare il calendario online, dove puoi scegliere date e riduzioni: %s",
				r.calendarURL,
			),
		}
	}

	date := intent.Dates[0]
	result, err := r.cart.Add(ctx, sessionID, date, intent.Variant, quantity)
	if err != nil {
		r.log.Warn("Falling back to calendar after cart failure",
			logger.SessionIDField(sessionID),
			logger.ErrorField(err),
		)
		return Resolution{
			Outcome:  OutcomeCalendar,
			Date:     &date,
			Quantity: quantity,
			Reply: fmt.Sprintf(
				"Non sono riuscito ad aggiungere i biglietti al carrello. Puoi acquistarli direttamente dal calendario: %s",
				r.calendarURL,
			),
		}
	}

	plural := "i"
	if quantity == 1 {
		plural = "o"
	}
	return Resolution{
		Outcome:     OutcomeAdded,
		Date:        &date,
		Quantity:    quantity,
		CheckoutURL: result.CheckoutURL,
		Reply: fmt.Sprintf(
			"Ho aggiunto %d bigliett%s (%s) per il %s al carrello! Completa l'acquisto qui: %s",
			quantity, plural, intent.Variant, date.Label(), result.CheckoutURL,
		),
	}
}
