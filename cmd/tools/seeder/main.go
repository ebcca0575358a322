package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	categories := seedCategories(ctx, conn)
	seedArtworks(ctx, conn, categories)

	log.Println("Seeding completed successfully!")
}

func seedCategories(ctx context.Context, conn *pgx.Conn) map[string]string {
	names := []struct {
		Name string
		Slug string
	}{
		{"Chocolates", "chocolates"},
		{"Photo Frames", "photo-frames"},
		{"Bouquets", "bouquets"},
		{"Gift Hampers", "gift-hampers"},
		{"Personalised", "personalised"},
	}

	fmt.Println("Seeding Categories...")
	ids := make(map[string]string, len(names))
	for _, c := range names {
		var id string
		err := conn.QueryRow(ctx, `
			INSERT INTO categories (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, c.Name, c.Slug).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed category %s: %v", c.Slug, err)
		}
		ids[c.Slug] = id
	}
	return ids
}

type artworkSeed struct {
	Title                 string
	Slug                  string
	Description           string
	Price                 string
	Category              string
	WeightKg              string
	RequiresCustomization bool
	OfferPrice            string
	OfferPercent          string
	ForceOfferBadge       bool
	PricingSchema         string
}

const chocolateSchema = `{
	"options": {
		"boxSize": {
			"type": "select",
			"values": [
				{"value": "small"},
				{"value": "medium", "delta": {"type": "flat", "value": "150"}},
				{"value": "large", "delta": {"type": "flat", "value": "350"}}
			]
		},
		"wrapping": {
			"type": "select",
			"values": [
				{"value": "classic"},
				{"value": "premium", "delta": {"type": "percent", "value": "10"}}
			]
		}
	}
}`

const frameSchema = `{
	"options": {
		"size": {
			"type": "select",
			"values": [
				{"value": "4x6"},
				{"value": "8x10", "delta": {"type": "flat", "value": "250"}},
				{"value": "12x16", "delta": {"type": "flat", "value": "600"}}
			]
		},
		"photoCount": {
			"type": "range",
			"tiers": [
				{"max": "1"},
				{"max": "4", "delta": {"type": "flat", "value": "200"}},
				{"max": "12", "delta": {"type": "flat", "value": "450"}}
			]
		},
		"messageLength": {
			"type": "range",
			"unit": "chars",
			"tiers": [{"max": "200"}]
		}
	}
}`

func seedArtworks(ctx context.Context, conn *pgx.Conn, categories map[string]string) {
	items := []artworkSeed{
		{
			Title: "Assorted Truffle Box", Slug: "assorted-truffle-box",
			Description: "Hand-rolled truffles in dark, milk, and white chocolate.",
			Price:       "800", Category: "chocolates", WeightKg: "0.4",
			PricingSchema: chocolateSchema,
		},
		{
			Title: "Hazelnut Praline Collection", Slug: "hazelnut-praline-collection",
			Description: "Roasted hazelnut pralines with a caramel core.",
			Price:       "1200", Category: "chocolates", WeightKg: "0.6",
			OfferPercent: "20", PricingSchema: chocolateSchema,
		},
		{
			Title: "Engraved Walnut Frame", Slug: "engraved-walnut-frame",
			Description: "Solid walnut frame with laser-engraved message.",
			Price:       "1500", Category: "photo-frames", WeightKg: "1.1",
			RequiresCustomization: true, PricingSchema: frameSchema,
		},
		{
			Title: "Collage Memory Frame", Slug: "collage-memory-frame",
			Description: "Multi-photo collage frame for up to twelve prints.",
			Price:       "2000", Category: "photo-frames", WeightKg: "1.4",
			OfferPrice: "1600", PricingSchema: frameSchema,
		},
		{
			Title: "Red Rose Bouquet", Slug: "red-rose-bouquet",
			Description: "Two dozen fresh red roses wrapped in kraft paper.",
			Price:       "900", Category: "bouquets", WeightKg: "0.8",
		},
		{
			Title: "Celebration Hamper", Slug: "celebration-hamper",
			Description: "Chocolates, candles, and a handwritten card in a wicker basket.",
			Price:       "2500", Category: "gift-hampers", WeightKg: "2.2",
			OfferPercent: "15", ForceOfferBadge: true,
		},
		{
			Title: "Custom Name Necklace", Slug: "custom-name-necklace",
			Description: "Sterling silver necklace cut to the name you choose.",
			Price:       "1800", Category: "personalised", WeightKg: "0.1",
			RequiresCustomization: true,
		},
	}

	fmt.Println("Seeding Artworks...")
	for _, a := range items {
		_, err := conn.Exec(ctx, `
			INSERT INTO artworks
				(title, slug, description, price, category_id, availability, status,
				 weight_kg, requires_customization, offer_price, offer_percent,
				 force_offer_badge, pricing_schema)
			VALUES ($1, $2, $3, $4::numeric, $5, 'in_stock', 'active',
				NULLIF($6, '')::numeric, $7, NULLIF($8, '')::numeric, NULLIF($9, '')::numeric,
				$10, NULLIF($11, '')::jsonb)
			ON CONFLICT (slug) DO UPDATE SET
				price = EXCLUDED.price,
				offer_price = EXCLUDED.offer_price,
				offer_percent = EXCLUDED.offer_percent,
				force_offer_badge = EXCLUDED.force_offer_badge,
				pricing_schema = EXCLUDED.pricing_schema`,
			a.Title, a.Slug, a.Description, a.Price, categories[a.Category],
			a.WeightKg, a.RequiresCustomization, a.OfferPrice, a.OfferPercent,
			a.ForceOfferBadge, a.PricingSchema,
		)
		if err != nil {
			log.Fatalf("Failed to seed artwork %s: %v", a.Slug, err)
		}
	}
}
