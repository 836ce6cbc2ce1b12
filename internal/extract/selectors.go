package extract

// Selector tables, most specific current markup first, legacy markup last.
// LinkedIn reshuffles its class names often; new variants go at the front.

var nameSelectors = []string{
	`h1.text-heading-xlarge`,
	`h1[data-test-id="profile-name"]`,
	`.pv-text-details__left-panel h1`,
	`.pv-top-card--list h1`,
	`.pv-top-card h1`,
	`h1`,
}

var titleSelectors = []string{
	`.text-body-medium.break-words`,
	`.pv-text-details__left-panel .text-body-medium`,
	`.pv-top-card--list .text-body-medium`,
	`.pv-top-card .text-body-medium`,
	`[data-test-id="profile-headline"]`,
	`.pv-entity__secondary-title`,
}

var companySelectors = []string{
	`.pv-text-details__left-panel .text-body-medium`,
	`.pv-entity__secondary-title`,
	`.pv-top-card--list .text-body-medium`,
	`.pv-top-card .text-body-medium`,
	`[data-test-id="current-position"]`,
	`.pv-entity__company-name`,
}

var aboutSelectors = []string{
	`.pv-shared-text-with-see-more`,
	`.inline-show-more-text`,
	`.display-flex.full-width`,
	`blockquote`,
	`p`,
}

// listItemSelector matches entries of experience, education and award lists.
const listItemSelector = `li.pvs-list__item, li.artdeco-list__item, li[role="listitem"]`

var (
	boldSelectors = []string{
		`.t-bold span[aria-hidden="true"]`,
		`.mr1.t-bold span[aria-hidden="true"]`,
		`.t-bold`,
	}
	experienceCompanySelectors = []string{
		`.t-normal span[aria-hidden="true"]`,
		`.t-14.t-normal`,
		`.pv-entity__secondary-title`,
		`.t-14.t-black--light`,
	}
	experienceDateSelectors = []string{
		`.t-14.t-normal.t-black--light span[aria-hidden="true"]`,
		`.t-12.t-black--light`,
		`.pv-entity__date-range span:nth-child(2)`,
	}
	experienceLocationSelectors = []string{
		`.pv-entity__location span:nth-child(2)`,
		`.t-14.t-normal.t-black--light:nth-of-type(2) span[aria-hidden="true"]`,
		`.t-14.t-black--light:nth-of-type(2)`,
	}
	experienceDescriptionSelectors = []string{
		`.pvs-list__outer-container .inline-show-more-text`,
		`.pv-entity__description`,
		`.pv-shared-text-with-see-more`,
	}
)

var (
	schoolSelectors = append(append([]string{}, boldSelectors...), `.pv-entity__school-name`)
	degreeSelectors = []string{
		`.t-normal span[aria-hidden="true"]`,
		`.pv-entity__secondary-title`,
		`.pv-entity__degree-name span:nth-child(2)`,
	}
	fieldOfStudySelectors = []string{
		`.pv-entity__fos span:nth-child(2)`,
	}
	educationDateSelectors = []string{
		`.t-14.t-normal.t-black--light span[aria-hidden="true"]`,
		`.pv-entity__dates time`,
	}
)

var (
	awardNameSelectors = []string{
		`.t-bold span[aria-hidden="true"]`,
		`.t-bold`,
	}
	awardIssuerSelectors = []string{
		`.t-normal span[aria-hidden="true"]`,
		`.t-14.t-normal`,
	}
	awardDateSelectors = []string{
		`.t-14.t-normal.t-black--light span[aria-hidden="true"]`,
		`time`,
	}
	awardDescriptionSelectors = []string{
		`.inline-show-more-text`,
		`.pv-shared-text-with-see-more`,
	}
)

const postCardSelector = `li, article, div.feed-shared-update-v2`

var postTextSelectors = []string{
	`.update-components-text`,
	`.feed-shared-update-v2__description-wrapper`,
	`.feed-shared-text`,
	`p`,
	`span[dir="ltr"]`,
}
