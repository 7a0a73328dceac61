package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/shehryarbajwa/browserbase-e2e/internal/world"
)

func registerUI(sc *godog.ScenarioContext) {
	sc.Step(`^I navigate to the application$`, navigateToApplication)
	sc.Step(`^I navigate to "([^"]*)"$`, navigateTo)
	sc.Step(`^I am on the application page$`, onApplicationPage)
	sc.Step(`^I perform an example action$`, performExampleAction)
	sc.Step(`^I interact with a form$`, interactWithForm)
	sc.Step(`^I fill the example input with "([^"]*)"$`, fillExampleInput)
	sc.Step(`^I submit the form$`, submitForm)
	sc.Step(`^I verify the expected result$`, verifyExpectedResult)
	sc.Step(`^I should see the expected outcome$`, expectedOutcome)
	sc.Step(`^I should receive a success message$`, successMessage)
	sc.Step(`^I take a screenshot named "([^"]*)"$`, takeScreenshot)
}

func navigateToApplication(ctx context.Context) error {
	return navigateTo(ctx, "")
}

func navigateTo(ctx context.Context, target string) error {
	w, err := world.FromContext(ctx)
	if err != nil {
		return err
	}
	return w.Navigate(target)
}

func onApplicationPage(ctx context.Context) error {
	w, err := world.FromContext(ctx)
	if err != nil {
		return err
	}
	page, err := w.Page()
	if err != nil {
		return err
	}
	if _, err := page.Title(); err != nil {
		return fmt.Errorf("read page title: %w", err)
	}
	return nil
}

func performExampleAction(ctx context.Context) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.ClickExampleButton()
}

func interactWithForm(ctx context.Context) error {
	return fillExampleInput(ctx, "test value")
}

func fillExampleInput(ctx context.Context, value string) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.FillExampleInput(value)
}

func submitForm(ctx context.Context) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.ClickSubmitButton()
}

func verifyExpectedResult(ctx context.Context) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.VerifyResultVisible()
}

func expectedOutcome(ctx context.Context) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.VerifySuccessMessage("Success")
}

func successMessage(ctx context.Context) error {
	_, p, err := examplePage(ctx)
	if err != nil {
		return err
	}
	return p.VerifyMessage("Form submitted successfully")
}

func takeScreenshot(ctx context.Context, name string) error {
	w, err := world.FromContext(ctx)
	if err != nil {
		return err
	}
	_, err = w.Capture(name)
	return err
}
