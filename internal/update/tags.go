package update

import (
	"context"
	"fmt"
	"os"
	"strings"

	git "github.com/go-git/go-git/v6"
	gitconfig "github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/google/go-github/v68/github"
)

// maxTagPages bounds GitHub tag pagination.
const maxTagPages = 5

// listTags resolves the candidate tags for a repository URL. GitHub
// repositories go through the API (honoring GITHUB_TOKEN); everything
// else is asked directly via git ls-remote.
func listTags(ctx context.Context, url string) ([]string, error) {
	if owner, repo, ok := githubRepo(url); ok {
		return listGitHubTags(ctx, owner, repo)
	}
	return listRemoteTags(ctx, url)
}

// githubRepo extracts owner and repo from a github.com URL.
func githubRepo(url string) (owner, repo string, ok bool) {
	u := url
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	u = strings.TrimSuffix(strings.TrimPrefix(u, "git@"), ".git")
	u = strings.Replace(u, ":", "/", 1)
	parts := strings.Split(u, "/")
	if len(parts) < 3 || parts[0] != "github.com" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func listGitHubTags(ctx context.Context, owner, repo string) ([]string, error) {
	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}

	var tags []string
	opts := &github.ListOptions{PerPage: 100}
	for page := 0; page < maxTagPages; page++ {
		list, resp, err := client.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("github: %w", err)
		}
		for _, t := range list {
			tags = append(tags, t.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return tags, nil
}

func listRemoteTags(ctx context.Context, url string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("ls-remote: %w", err)
	}
	var tags []string
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	return tags, nil
}
