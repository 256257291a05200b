package registry

import "orcsync.io/hub/internal/model"

// builtin assembles the full descriptor catalog. Order follows foreign key
// dependencies so AllTags can seed or replicate types front to back.
func builtin() map[string]*Descriptor {
	groups := [][]*Descriptor{
		stationDescriptors(),
		fleetDescriptors(),
		userDescriptors(),
		customsDescriptors(),
		routeDescriptors(),
	}
	catalog := make(map[string]*Descriptor)
	for _, ds := range groups {
		for _, d := range ds {
			catalog[d.Tag] = d
		}
	}
	return catalog
}

// AllTags lists every built-in entity tag in dependency order.
func AllTags() []string {
	return []string{
		model.TagStation,
		model.TagTruckOwner,
		model.TagDriver,
		model.TagTruck,
		model.TagGroup,
		model.TagUser,
		model.TagCommodity,
		model.TagPaymentMethod,
		model.TagDeclaration,
		model.TagCheckIn,
		model.TagPath,
		model.TagPathStation,
	}
}
