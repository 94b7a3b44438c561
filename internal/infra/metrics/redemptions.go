package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		redemptionsTotal,
		redemptionAmountTotal,
		offerRejectionsTotal,
		codePreviewsTotal,
	)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_redemptions_total",
			Help: "Redemption attempts by outcome.",
		},
		[]string{"result"}, // 'completed', 'code_expired', 'persistence_failure', ...
	)

	redemptionAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_redemption_amount_total",
			Help: "Sum of amounts processed by completed redemptions.",
		},
		[]string{"kind"}, // 'original', 'discount', 'final'
	)

	offerRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_offer_rejections_total",
			Help: "Offers rejected by the eligibility engine, by reason.",
		},
		[]string{"reason"},
	)

	codePreviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_code_previews_total",
			Help: "Code previews by outcome.",
		},
		[]string{"result"},
	)
)

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func AddRedemptionAmounts(original, discount, final float64) {
	redemptionAmountTotal.WithLabelValues("original").Add(original)
	redemptionAmountTotal.WithLabelValues("discount").Add(discount)
	redemptionAmountTotal.WithLabelValues("final").Add(final)
}

func IncOfferRejection(reason string) {
	offerRejectionsTotal.WithLabelValues(norm(reason)).Inc()
}

func IncCodePreview(result string) {
	codePreviewsTotal.WithLabelValues(norm(result)).Inc()
}
