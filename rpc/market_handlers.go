package rpc

import (
	"encoding/json"
	"net/http"

	"relicledger/crypto"
)

type marketListParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Price   string `json:"price"`
}

type marketTokenParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
}

type marketOfferParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Amount  string `json:"amount"`
}

type marketAcceptParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Offerer string `json:"offerer"`
}

type marketSetPausedParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type marketQueryParams struct {
	TokenID uint64 `json:"tokenId"`
}

type marketListingResult struct {
	Seller  string `json:"seller"`
	TokenID uint64 `json:"tokenId"`
	Price   string `json:"price"`
}

type marketOfferResult struct {
	Offerer string `json:"offerer"`
	Amount  string `json:"amount"`
}

type marketStatsResult struct {
	TotalVolume string `json:"totalVolume"`
	TotalTrades uint64 `json:"totalTrades"`
	HighPrice   string `json:"highPrice"`
	LowPrice    string `json:"lowPrice"`
	AvgPrice    string `json:"avgPrice"`
}

func (s *Server) handleMarketList(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketListParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketList(caller, params.TokenID, price); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketUnlist(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketTokenParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketUnlist(caller, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketBuy(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketTokenParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketBuy(caller, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketMakeOffer(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketOfferParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketMakeOffer(caller, params.TokenID, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketAcceptOffer(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketAcceptParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	offerer, err := parseBech32Address(params.Offerer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketAcceptOffer(caller, params.TokenID, offerer); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketCancelOffer(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketTokenParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketCancelOffer(caller, params.TokenID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketSetPaused(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketSetPausedParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.MarketSetPaused(caller, params.Paused); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketGetListing(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	listing, err := s.node.MarketListing(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if listing == nil {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, marketListingResult{
		Seller:  crypto.MustNewAddress(crypto.RelicPrefix, listing.Seller[:]).String(),
		TokenID: listing.TokenID,
		Price:   bigString(listing.Price),
	})
}

func (s *Server) handleMarketGetOffers(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params marketQueryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	offers, err := s.node.MarketOffers(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]marketOfferResult, 0, len(offers))
	for _, offer := range offers {
		results = append(results, marketOfferResult{
			Offerer: crypto.MustNewAddress(crypto.RelicPrefix, offer.Offerer[:]).String(),
			Amount:  bigString(offer.Amount),
		})
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleMarketGetStats(w http.ResponseWriter, req *RPCRequest) {
	stats, err := s.node.MarketStats()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, marketStatsResult{
		TotalVolume: bigString(stats.TotalVolume),
		TotalTrades: stats.TotalTrades,
		HighPrice:   bigString(stats.HighPrice),
		LowPrice:    bigString(stats.LowPrice),
		AvgPrice:    bigString(stats.AvgPrice()),
	})
}
