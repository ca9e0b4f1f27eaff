package service

import (
	"strings"
	"testing"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
)

func TestScorePartMonotonicInStock(t *testing.T) {
	base := entity.Part{Supplier: "JLCPCB", Price: 0.5}
	prev := ScorePart(base)
	for _, stock := range []int{1, 100, 10000, 100000, 10000000, 50000000} {
		p := base
		p.Stock = stock
		score := ScorePart(p)
		if score < prev {
			t.Errorf("score decreased when stock rose to %d: %f < %f", stock, score, prev)
		}
		prev = score
	}
}

func TestScorePartAntiMonotonicInPrice(t *testing.T) {
	base := entity.Part{Supplier: "DigiKey", Stock: 1000}
	prev := ScorePart(entity.Part{Supplier: "DigiKey", Stock: 1000, Price: 0.001})
	for _, price := range []float64{0.01, 0.1, 1, 4.99, 10, 100} {
		p := base
		p.Price = price
		score := ScorePart(p)
		if score > prev {
			t.Errorf("score increased when price rose to %f: %f > %f", price, score, prev)
		}
		prev = score
	}
}

func TestScorePartBonuses(t *testing.T) {
	jlc := entity.Part{Supplier: "JLCPCB", Stock: 100, LCSCPart: "C1234"}
	jlcNoCode := entity.Part{Supplier: "JLCPCB", Stock: 100}
	if ScorePart(jlc)-ScorePart(jlcNoCode) != 50 {
		t.Errorf("expected 50 point LCSC bonus, got %f", ScorePart(jlc)-ScorePart(jlcNoCode))
	}

	dk := entity.Part{Supplier: "DigiKey", Stock: 100, DatasheetURL: "https://example.com/ds.pdf"}
	dkNoDS := entity.Part{Supplier: "DigiKey", Stock: 100}
	if ScorePart(dk)-ScorePart(dkNoDS) != 20 {
		t.Errorf("expected 20 point datasheet bonus, got %f", ScorePart(dk)-ScorePart(dkNoDS))
	}

	// 分销商没有LCSC加分，JLCPCB没有datasheet加分
	dkWithLCSC := entity.Part{Supplier: "Mouser", Stock: 100, LCSCPart: "C1"}
	if ScorePart(dkWithLCSC) != ScorePart(entity.Part{Supplier: "Mouser", Stock: 100}) {
		t.Error("distributor part must not receive LCSC bonus")
	}
}

func TestScorePartZeroPriceContributesNothing(t *testing.T) {
	with := entity.Part{Supplier: "JLCPCB", Stock: 10, Price: 0}
	if ScorePart(with) != inStockBonus+float64(10)/stockDivisor {
		t.Errorf("zero price must contribute nothing, got %f", ScorePart(with))
	}
}

func TestSelectBestCascadeBeatsRawScore(t *testing.T) {
	// JLCPCB低分候选必须压过分销商高分候选
	weakJLC := entity.Part{Supplier: "JLCPCB", Stock: 0, Price: 4.5, LCSCPart: "C99"} // 0+0+5+50 > 0
	strongDK := entity.Part{Supplier: "DigiKey", Stock: 50000000, Price: 0.001, DatasheetURL: "x"}

	if ScorePart(weakJLC) >= ScorePart(strongDK) {
		t.Fatalf("test setup broken: jlc score %f should be below distributor score %f",
			ScorePart(weakJLC), ScorePart(strongDK))
	}

	results := map[string][]entity.Part{
		"JLCPCB":  {weakJLC},
		"DigiKey": {strongDK},
	}
	best, _, ok := SelectBest(results, []string{"JLCPCB", "DigiKey", "Mouser"})
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.Supplier != "JLCPCB" {
		t.Errorf("cascade must prefer JLCPCB, got %s", best.Supplier)
	}
}

func TestSelectBestSkipsZeroScoreTier(t *testing.T) {
	// JLCPCB只有0分候选（无库存、无价格、无编号）时落到下一级
	dead := entity.Part{Supplier: "JLCPCB"}
	alive := entity.Part{Supplier: "Mouser", Stock: 500, Price: 0.1}

	results := map[string][]entity.Part{
		"JLCPCB": {dead},
		"Mouser": {alive},
	}
	best, _, ok := SelectBest(results, []string{"JLCPCB", "DigiKey", "Mouser"})
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.Supplier != "Mouser" {
		t.Errorf("expected fall-through to Mouser, got %s", best.Supplier)
	}
}

func TestSelectBestNoResults(t *testing.T) {
	if _, _, ok := SelectBest(map[string][]entity.Part{}, []string{"JLCPCB", "DigiKey", "Mouser"}); ok {
		t.Error("empty results must not select anything")
	}
}

func TestSelectBestPicksHighestWithinSupplier(t *testing.T) {
	low := entity.Part{Supplier: "JLCPCB", Stock: 10, Price: 2, LCSCPart: "Clow"}
	high := entity.Part{Supplier: "JLCPCB", Stock: 900000, Price: 0.01, LCSCPart: "Chigh"}
	results := map[string][]entity.Part{"JLCPCB": {low, high}}

	best, _, ok := SelectBest(results, []string{"JLCPCB"})
	if !ok || best.LCSCPart != "Chigh" {
		t.Errorf("expected Chigh selected, got %+v", best)
	}
}

func TestMatchNoteMentionsSupplierAndStock(t *testing.T) {
	p := entity.Part{Supplier: "JLCPCB", LCSCPart: "C5137468", Stock: 15900000}
	note := matchNote(p)
	if !strings.Contains(note, "JLCPCB") {
		t.Errorf("note must mention supplier: %q", note)
	}
	if !strings.Contains(note, "C5137468") {
		t.Errorf("note must mention part code: %q", note)
	}
	if !strings.Contains(note, "15,900,000") {
		t.Errorf("note must include formatted stock: %q", note)
	}
}

func TestFormatStock(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		15900000: "15,900,000",
	}
	for in, want := range cases {
		if got := formatStock(in); got != want {
			t.Errorf("formatStock(%d) = %q, want %q", in, got, want)
		}
	}
}
