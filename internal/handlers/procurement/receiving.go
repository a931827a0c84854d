package procurement

import "jewelpo/internal/workflow"

// receivingActions cover the shipment from arrival through QC and imaging.
func (h *Handler) receivingActions() map[workflow.Action]actionFunc {
	return map[workflow.Action]actionFunc{
		workflow.ActionReceiveGoods:        bind(h.Purchase.ReceiveGoods),
		workflow.ActionInwardItem:          bind(h.Purchase.InwardItem),
		workflow.ActionMarkInwardComplete:  bind(h.Purchase.MarkInwardComplete),
		workflow.ActionUpdateQC:            bind(h.Purchase.UpdateQC),
		workflow.ActionMarkQCComplete:      bind(h.Purchase.MarkQCComplete),
		workflow.ActionUpdateImageStatus:   bind(h.Purchase.UpdateImageStatus),
		workflow.ActionMarkImagingComplete: bind(h.Purchase.MarkImagingComplete),
	}
}
