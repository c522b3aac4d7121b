package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4"
	"gopkg.in/yaml.v3"

	"telegram-contest-bot/internal/config"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/repository"
	pg "telegram-contest-bot/internal/infra/db/postgres"
	"telegram-contest-bot/internal/infra/logging"
)

// catalogFile is the layout of the seed YAML.
type catalogFile struct {
	Categories []struct {
		ID     int    `yaml:"id"`
		Title  string `yaml:"title"`
		Themes []struct {
			Title     string `yaml:"title"`
			Technique string `yaml:"technique"`
		} `yaml:"themes"`
	} `yaml:"categories"`
	Materials []struct {
		Title string `yaml:"title"`
		Link  string `yaml:"link"`
	} `yaml:"materials"`
	News []struct {
		Text        string    `yaml:"text"`
		Image       string    `yaml:"image"`
		PublishedAt time.Time `yaml:"published_at"`
	} `yaml:"news"`
	Teams []struct {
		Name    string  `yaml:"name"`
		Members []int64 `yaml:"members"`
	} `yaml:"teams"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	seedPath := flag.String("file", "deploy/seed/catalog.yaml", "path to the catalog seed file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	raw, err := os.ReadFile(*seedPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read seed file")
	}
	var cat catalogFile
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		logger.Fatal().Err(err).Msg("parse seed file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	catalog := pg.NewCatalogRepo(pool)
	teams := pg.NewTeamRepo(pool)
	var themes, materials, news, members int

	err = pg.NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, c := range cat.Categories {
			if err := catalog.SaveCategory(ctx, tx, &model.Category{ID: c.ID, Title: c.Title}); err != nil {
				return fmt.Errorf("category %d: %w", c.ID, err)
			}
			for _, t := range c.Themes {
				if _, err := catalog.CreateTheme(ctx, tx, &model.Theme{Title: t.Title, Technique: t.Technique, CategoryID: c.ID}); err != nil {
					return fmt.Errorf("theme %q: %w", t.Title, err)
				}
				themes++
			}
		}
		for _, m := range cat.Materials {
			if _, err := catalog.SaveMaterial(ctx, tx, &model.Material{Title: m.Title, Link: m.Link}); err != nil {
				return fmt.Errorf("material %q: %w", m.Title, err)
			}
			materials++
		}
		for _, n := range cat.News {
			published := n.PublishedAt
			if published.IsZero() {
				published = time.Now()
			}
			if _, err := catalog.SaveNews(ctx, tx, &model.News{Text: n.Text, Image: n.Image, PublishedAt: published}); err != nil {
				return fmt.Errorf("news: %w", err)
			}
			news++
		}
		for _, t := range cat.Teams {
			id, err := teams.CreateTeam(ctx, tx, t.Name)
			if err != nil {
				return fmt.Errorf("team %q: %w", t.Name, err)
			}
			for _, uid := range t.Members {
				if err := teams.AddMember(ctx, tx, id, uid); err != nil {
					return fmt.Errorf("team %q member %d: %w", t.Name, uid, err)
				}
				members++
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().
		Int("categories", len(cat.Categories)).
		Int("themes", themes).
		Int("materials", materials).
		Int("news", news).
		Int("teams", len(cat.Teams)).
		Int("members", members).
		Msg("catalog seeded")
}
