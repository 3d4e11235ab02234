package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/typeracer/internal/client"
	"github.com/verte-zerg/typeracer/internal/config"
	"github.com/verte-zerg/typeracer/internal/corpus"
	"github.com/verte-zerg/typeracer/internal/model"
)

var (
	corpusFile      string
	corpusReference string
	corpusWordlist  string
	corpusLang      string
	corpusWords     int
	corpusCaps      float64
	corpusPunct     float64
	corpusServer    string
	corpusDB        string
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Show or replace the race text",
		Long: "Without flags, prints the active corpus. With --file or --wordlist, " +
			"stores a new corpus in the local db used by solo games and the server.",
		Args: cobra.NoArgs,
		RunE: runCorpusCmd,
	}
	cmd.Flags().StringVar(&corpusFile, "file", "", "load the corpus text from this file")
	cmd.Flags().StringVar(&corpusReference, "reference", "", "reference WPM series, comma separated")
	cmd.Flags().StringVar(&corpusWordlist, "wordlist", "", "generate the corpus from this word list")
	cmd.Flags().StringVar(&corpusLang, "lang", "", "word list language (default from the file name)")
	cmd.Flags().IntVar(&corpusWords, "words", defaultWords, "words per generated text")
	cmd.Flags().Float64Var(&corpusCaps, "caps", defaultCaps, "probability of capitalized first letter (0-1)")
	cmd.Flags().Float64Var(&corpusPunct, "punct", defaultPunct, "punctuation probability per word (0-1)")
	cmd.Flags().StringVar(&corpusServer, "server", "", "show the corpus served by a race server")
	cmd.Flags().StringVar(&corpusDB, "db", "", "SQLite path (default in the data dir)")
	return cmd
}

func runCorpusCmd(cmd *cobra.Command, _ []string) error {
	if corpusFile != "" && corpusWordlist != "" {
		return fmt.Errorf("--file and --wordlist are mutually exclusive")
	}
	writing := corpusFile != "" || corpusWordlist != ""
	if writing && corpusServer != "" {
		return fmt.Errorf("--server is read-only; replace the corpus on the server host")
	}
	if cmd.Flags().Changed("reference") && corpusFile == "" {
		return fmt.Errorf("--reference requires --file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	if corpusServer != "" {
		c, err := client.New(corpusServer, zerolog.Nop()).Corpus(ctx)
		if err != nil {
			return fmt.Errorf("failed to load corpus from %s: %w", corpusServer, err)
		}
		return printCorpus(c)
	}

	dbPath := corpusDB
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if !writing {
		c, err := corpus.NewProvider(st).Corpus(ctx)
		if err != nil {
			return err
		}
		return printCorpus(c)
	}

	c, err := buildCorpus()
	if err != nil {
		return err
	}
	if err := st.SaveCorpus(ctx, c); err != nil {
		return fmt.Errorf("failed to save corpus: %w", err)
	}
	logErrf("saved corpus with %d characters\n", len([]rune(c.Text)))
	return nil
}

func buildCorpus() (model.Corpus, error) {
	if corpusFile != "" {
		text, err := corpus.LoadFile(corpusFile)
		if err != nil {
			return model.Corpus{}, err
		}
		reference, err := corpus.ParseReference(corpusReference)
		if err != nil {
			return model.Corpus{}, err
		}
		return model.Corpus{Text: text, Reference: reference}, nil
	}

	if corpusWords <= 0 {
		return model.Corpus{}, fmt.Errorf("--words must be > 0")
	}
	if corpusCaps < 0 || corpusCaps > 1 {
		return model.Corpus{}, fmt.Errorf("--caps must be between 0 and 1")
	}
	if corpusPunct < 0 || corpusPunct > 1 {
		return model.Corpus{}, fmt.Errorf("--punct must be between 0 and 1")
	}
	path := resolveWordListPath(corpusWordlist)
	lang := corpusLang
	if lang == "" {
		lang = langFromPath(path)
	}
	words, err := corpus.LoadWords(path, corpus.FilterForLang(lang))
	if err != nil {
		return model.Corpus{}, wordListLoadError(path, err)
	}
	text := corpus.NewGenerator().Generate(words, corpus.GenerateOptions{
		Words:    corpusWords,
		CapsPct:  corpusCaps,
		PunctPct: corpusPunct,
		PunctSet: []rune(defaultPunctSet),
	})
	if text == "" {
		return model.Corpus{}, fmt.Errorf("word list %s produced no text", corpusWordlist)
	}
	return model.Corpus{Text: text}, nil
}

func printCorpus(c model.Corpus) error {
	if _, err := fmt.Fprintln(os.Stdout, c.Text); err != nil {
		return err
	}
	if len(c.Reference) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(os.Stdout, "\nReference: %s\n", corpus.FormatReference(c.Reference))
	return err
}
