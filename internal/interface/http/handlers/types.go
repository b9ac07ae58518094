package handlers

import (
	"encoding/hex"
	"strings"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/core/domain"
)

type participateRequest struct {
	Token  string `json:"token" binding:"required,eth_addr"`
	Amount uint64 `json:"amount"`
}

type createRoundRequest struct {
	Deadline    int64  `json:"deadline" binding:"required,gt=0"`
	Description string `json:"description" binding:"label"`
}

type setTokenRequest struct {
	Token   string `json:"token" binding:"required,eth_addr"`
	Allowed bool   `json:"allowed"`
}

type withdrawRequest struct {
	To string `json:"to" binding:"required,eth_addr"`
}

type fulfillRequest struct {
	RequestId   string `json:"request_id" binding:"required"`
	RandomValue string `json:"random_value" binding:"required,hexadecimal"`
	Proof       string `json:"proof" binding:"omitempty,hexadecimal"`
}

type mintRequest struct {
	Token  string `json:"token" binding:"required,eth_addr"`
	To     string `json:"to" binding:"required,eth_addr"`
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

type approveRequest struct {
	Token   string `json:"token" binding:"required,eth_addr"`
	Spender string `json:"spender" binding:"required,eth_addr"`
	Amount  uint64 `json:"amount"`
}

type balanceQuery struct {
	Token string `form:"token" binding:"required,eth_addr"`
	Owner string `form:"owner" binding:"required,eth_addr"`
}

type entry struct {
	Index       uint64 `json:"index"`
	Participant string `json:"participant"`
	Token       string `json:"token"`
	Amount      uint64 `json:"amount"`
}

type winner struct {
	Tier        string `json:"tier"`
	Participant string `json:"participant"`
	ItemId      string `json:"item_id,omitempty"`
	Delivered   bool   `json:"delivered"`
	DeliveryErr string `json:"delivery_error,omitempty"`
}

type roundInfo struct {
	Id           uint64            `json:"id"`
	Deadline     int64             `json:"deadline"`
	Description  string            `json:"description"`
	State        string            `json:"state"`
	TreasurySize uint64            `json:"treasury_size"`
	Participants []entry           `json:"participants"`
	Deposits     map[string]uint64 `json:"deposits"`
	RequestId    string            `json:"request_id,omitempty"`
	Winners      []winner          `json:"winners"`
	Withdrawn    bool              `json:"withdrawn"`
	CreatedAt    int64             `json:"created_at"`
	SettledAt    int64             `json:"settled_at,omitempty"`
}

func toRoundInfo(info *application.RoundInfo) roundInfo {
	participants := make([]entry, 0, len(info.Participants))
	for _, e := range info.Participants {
		participants = append(participants, entry{e.Index, e.Participant, e.Token, e.Amount})
	}
	return roundInfo{
		Id:           info.Id,
		Deadline:     info.Deadline,
		Description:  info.Description,
		State:        info.State.String(),
		TreasurySize: info.TreasurySize,
		Participants: participants,
		Deposits:     info.Deposits,
		RequestId:    info.RequestId,
		Winners:      toWinners(info.Winners),
		Withdrawn:    info.Withdrawn,
		CreatedAt:    info.CreatedAt,
		SettledAt:    info.SettledAt,
	}
}

func toWinners(list []domain.Winner) []winner {
	winners := make([]winner, 0, len(list))
	for _, w := range list {
		winners = append(winners, winner{
			Tier:        w.Tier.String(),
			Participant: w.Participant,
			ItemId:      w.ItemId,
			Delivered:   w.Delivered,
			DeliveryErr: w.DeliveryErr,
		})
	}
	return winners
}

type vaultInfo struct {
	Tier      string `json:"tier"`
	Remaining int    `json:"remaining"`
}

type serviceInfo struct {
	EngineAddress string      `json:"engine_address"`
	AdminAddress  string      `json:"admin_address"`
	OracleAddress string      `json:"oracle_address"`
	OracleFee     uint64      `json:"oracle_fee"`
	FeeToken      string      `json:"fee_token,omitempty"`
	Vaults        []vaultInfo `json:"vaults"`
}

func toServiceInfo(info *application.ServiceInfo) serviceInfo {
	vaults := make([]vaultInfo, 0, len(info.Vaults))
	for _, v := range info.Vaults {
		vaults = append(vaults, vaultInfo{v.Tier.String(), v.Remaining})
	}
	return serviceInfo{
		EngineAddress: info.EngineAddress,
		AdminAddress:  info.AdminAddress,
		OracleAddress: info.OracleAddress,
		OracleFee:     info.OracleFee,
		FeeToken:      info.FeeToken,
		Vaults:        vaults,
	}
}

type allowedToken struct {
	Token     string `json:"token"`
	Allowed   bool   `json:"allowed"`
	UpdatedAt int64  `json:"updated_at"`
}

type deliveryResult struct {
	Tier      string `json:"tier"`
	Recipient string `json:"recipient"`
	ItemId    string `json:"item_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func decodeHex(s string) ([]byte, error) {
	if len(s) <= 0 {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
}
